package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/config"
	dbRedis "github.com/kailas-cloud/hoteldex/internal/db/redis"
	"github.com/kailas-cloud/hoteldex/internal/dump"
	logpkg "github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/metrics"
	"github.com/kailas-cloud/hoteldex/internal/provider/ratehawk"
	indexrepo "github.com/kailas-cloud/hoteldex/internal/repository/index"
	jobrepo "github.com/kailas-cloud/hoteldex/internal/repository/job"
	"github.com/kailas-cloud/hoteldex/internal/usecase/load"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

// app is the composition root shared by every command.
type app struct {
	env      string
	cfg      config.Config
	logger   *zap.Logger
	store    *dbRedis.Store
	index    *indexrepo.Repo
	jobs     *jobrepo.Repo
	provider *ratehawk.Client
	registry *syncuc.Registry
}

func newApp(ctx context.Context, env string) (*app, error) {
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:                 cfg.Database.Addrs,
		Username:              cfg.Database.Username,
		Password:              cfg.Database.Password,
		DB:                    cfg.Database.DB,
		TLS:                   cfg.Database.TLS,
		TLSInsecureSkipVerify: cfg.Database.TLSInsecureSkipVerify,
		TLSServerName:         cfg.Database.TLSServerName,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	// Register sync metrics explicitly (no init())
	metrics.RegisterSyncMetrics()

	a := &app{
		env:    env,
		cfg:    cfg,
		logger: logger,
		store:  store,
		index:  indexrepo.New(store, cfg.Storage.KeyPrefix),
		jobs:   jobrepo.New(store, cfg.Storage.KeyPrefix, cfg.Sync.JobTTL),
		provider: ratehawk.New(ratehawk.Config{
			BaseURL:   cfg.Provider.BaseURL,
			KeyID:     cfg.Provider.KeyID,
			APIKey:    cfg.Provider.APIKey,
			Timeout:   time.Duration(cfg.Provider.TimeoutSec) * time.Second,
			Language:  cfg.Provider.Language,
			Inventory: cfg.Provider.Inventory,
		}),
	}
	if !a.provider.Configured() {
		logger.Warn("Provider credentials missing, dump URLs must be passed explicitly",
			zap.String("provider", a.provider.Name()))
	}

	chunk := cfg.Sync.ChunkSizeKB << 10
	orch := syncuc.NewOrchestrator(syncuc.Deps{
		Fetcher:      dump.NewFetcher(cfg.Sync.DownloadTimeout, chunk),
		Decompressor: dump.NewDecompressor(chunk, uint64(cfg.Sync.MaxWindowMB)<<20),
		Filter:       dump.NewFilter(chunk),
		Loader: load.New(a.index).
			WithBatchSize(cfg.Sync.BatchSize).
			WithMaxSamples(cfg.Sync.MaxErrorSamples),
		Resolver: a.provider,
		Store:    a.jobs,
	}, cfg.Sync.WorkspaceRoot)

	a.registry = syncuc.NewRegistry(orch, a.jobs, syncuc.Options{
		Source:        a.provider.Name(),
		MaxConcurrent: cfg.Sync.MaxConcurrentJobs,
		JobTimeout:    cfg.Sync.JobTimeout,
		MaxSamples:    cfg.Sync.MaxErrorSamples,
	}).WithLock(a.jobs)
	return a, nil
}

// withLogger returns ctx carrying the application logger.
func (a *app) withLogger(ctx context.Context) context.Context {
	return logpkg.ContextWithLogger(ctx, a.logger)
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}
