// Package config loads the service configuration from config/<ENV>.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/hoteldex/internal/domain"
)

// Config holds the hoteldex configuration. It is built once at startup and
// passed by value.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Provider ProviderConfig `yaml:"provider"`
	Sync     SyncConfig     `yaml:"sync"`
	Query    QueryConfig    `yaml:"query"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds operator API keys guarding the sync endpoints.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds index service connection settings.
type DatabaseConfig struct {
	Driver                string   `yaml:"driver"` // redis (Redis Stack / Redis 8 with search + JSON)
	Addrs                 []string `yaml:"addrs"`
	Username              string   `yaml:"username"`
	Password              string   `yaml:"password"`
	DB                    int      `yaml:"db"`
	TLS                   bool     `yaml:"tls"`
	TLSInsecureSkipVerify bool     `yaml:"tls_insecure_skip_verify"`
	TLSServerName         string   `yaml:"tls_server_name"`
	ReadinessTimeout      int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// ProviderConfig holds the booking provider API settings.
type ProviderConfig struct {
	Name       string `yaml:"name"` // ratehawk
	BaseURL    string `yaml:"base_url"`
	KeyID      string `yaml:"key_id"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Language   string `yaml:"language"`
	Inventory  string `yaml:"inventory"` // all, direct, preferable
}

// ScheduleConfig is one periodic sync.
type ScheduleConfig struct {
	Kind     string        `yaml:"kind"`
	Country  string        `yaml:"country"`
	Index    string        `yaml:"index"`
	Language string        `yaml:"language"`
	Interval time.Duration `yaml:"interval"`
}

// SyncConfig holds dump pipeline settings.
type SyncConfig struct {
	WorkspaceRoot     string           `yaml:"workspace_root"`
	BatchSize         int              `yaml:"batch_size"`
	ChunkSizeKB       int              `yaml:"chunk_size_kb"`
	DownloadTimeout   time.Duration    `yaml:"download_timeout"`
	JobTimeout        time.Duration    `yaml:"job_timeout"`
	MaxErrorSamples   int              `yaml:"max_error_samples"`
	MaxConcurrentJobs int              `yaml:"max_concurrent_jobs"`
	MaxWindowMB       int              `yaml:"max_window_mb"`
	JobTTL            time.Duration    `yaml:"job_ttl"`
	Schedules         []ScheduleConfig `yaml:"schedules"`
}

// QueryConfig holds lookup settings.
type QueryConfig struct {
	HotelIndex   string `yaml:"hotel_index"`
	RegionIndex  string `yaml:"region_index"`
	LiveFallback *bool  `yaml:"live_fallback"`
}

// FallbackEnabled reports whether index misses go to the provider.
func (q QueryConfig) FallbackEnabled() bool {
	return q.LiveFallback == nil || *q.LiveFallback
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 15
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "hoteldex:"
	}
	c.applyProviderDefaults()
	c.applySyncDefaults()
	if c.Query.HotelIndex == "" {
		c.Query.HotelIndex = "hotels"
	}
	if c.Query.RegionIndex == "" {
		c.Query.RegionIndex = "regions"
	}
}

func (c *Config) applyProviderDefaults() {
	if c.Provider.Name == "" {
		c.Provider.Name = "ratehawk"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.worldota.net/api/"
	}
	if c.Provider.TimeoutSec <= 0 {
		c.Provider.TimeoutSec = 30
	}
	if c.Provider.Language == "" {
		c.Provider.Language = "en"
	}
	if c.Provider.Inventory == "" {
		c.Provider.Inventory = "all"
	}
}

func (c *Config) applySyncDefaults() {
	s := &c.Sync
	if s.WorkspaceRoot == "" {
		s.WorkspaceRoot = os.TempDir()
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 1000
	}
	if s.ChunkSizeKB <= 0 {
		s.ChunkSizeKB = 32
	}
	if s.DownloadTimeout <= 0 {
		s.DownloadTimeout = 30 * time.Minute
	}
	if s.JobTimeout <= 0 {
		s.JobTimeout = 2 * time.Hour
	}
	if s.MaxErrorSamples <= 0 {
		s.MaxErrorSamples = 10
	}
	if s.MaxConcurrentJobs <= 0 {
		s.MaxConcurrentJobs = 2
	}
	if s.MaxWindowMB <= 0 {
		s.MaxWindowMB = 128
	}
	if s.JobTTL <= 0 {
		s.JobTTL = 7 * 24 * time.Hour
	}
}

// Validate checks the configuration for correctness. Failures wrap
// domain.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Provider.Name != "ratehawk" {
		return fmt.Errorf("provider.name must be \"ratehawk\", got %q", c.Provider.Name)
	}
	switch c.Provider.Inventory {
	case "all", "direct", "preferable":
		// ok
	default:
		return fmt.Errorf("provider.inventory must be all, direct or preferable, got %q", c.Provider.Inventory)
	}
	if c.Sync.BatchSize > 10000 {
		return fmt.Errorf("sync.batch_size must be at most 10000, got %d", c.Sync.BatchSize)
	}
	for i, s := range c.Sync.Schedules {
		if s.Kind != "hotel" && s.Kind != "region" {
			return fmt.Errorf("sync.schedules[%d].kind must be \"hotel\" or \"region\", got %q", i, s.Kind)
		}
		if s.Country == "" || s.Index == "" {
			return fmt.Errorf("sync.schedules[%d]: country and index are required", i)
		}
		if s.Interval < time.Minute {
			return fmt.Errorf("sync.schedules[%d].interval must be at least 1m, got %s", i, s.Interval)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
