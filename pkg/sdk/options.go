package hoteldex

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs     []string
	password  string
	keyPrefix string

	keyID           string
	apiKey          string
	providerBaseURL string
	language        string

	workspace    string
	batchSize    int
	hotelIndex   string
	regionIndex  string
	liveFallback bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the Redis instance holding the indexes.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix namespaces every key and index. Default: "hoteldex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithRatehawk sets the provider credentials used to resolve dump URLs and
// to answer live lookups. Without them every sync needs an explicit URL.
func WithRatehawk(keyID, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyID = keyID
		c.apiKey = apiKey
	})
}

// WithProviderBaseURL overrides the provider API root, e.g. for a sandbox.
func WithProviderBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.providerBaseURL = url
	})
}

// WithLanguage sets the default dump and lookup language. Default: "en".
func WithLanguage(lang string) Option {
	return optionFunc(func(c *clientConfig) {
		c.language = lang
	})
}

// WithWorkspace sets the directory under which job workspaces are created.
// Defaults to the system temp dir.
func WithWorkspace(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.workspace = dir
	})
}

// WithBatchSize sets the number of documents per index write. Default: 1000.
func WithBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = size
	})
}

// WithIndexes sets the default indexes of hotel and region lookups.
// Defaults: "hotels" and "regions".
func WithIndexes(hotels, regions string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hotelIndex = hotels
		c.regionIndex = regions
	})
}

// WithoutLiveFallback answers lookups from the index only.
func WithoutLiveFallback() Option {
	return optionFunc(func(c *clientConfig) {
		c.liveFallback = false
	})
}

// WithLogger enables structured logging for SDK operations and sync jobs.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
