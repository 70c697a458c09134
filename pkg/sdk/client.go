package hoteldex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kailas-cloud/hoteldex/internal/db"
	dbRedis "github.com/kailas-cloud/hoteldex/internal/db/redis"
	domdoc "github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
	"github.com/kailas-cloud/hoteldex/internal/dump"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/provider/ratehawk"
	indexrepo "github.com/kailas-cloud/hoteldex/internal/repository/index"
	jobrepo "github.com/kailas-cloud/hoteldex/internal/repository/job"
	healthuc "github.com/kailas-cloud/hoteldex/internal/usecase/health"
	"github.com/kailas-cloud/hoteldex/internal/usecase/load"
	queryuc "github.com/kailas-cloud/hoteldex/internal/usecase/query"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultJobTTL           = 7 * 24 * time.Hour
	defaultChunkSize        = 32 << 10
	defaultMaxWindow        = 128 << 20
	defaultDownloadTimeout  = 30 * time.Minute
	defaultMaxSamples       = 10
)

// Internal interfaces, swapped for mocks in tests.
type syncUseCase interface {
	Run(ctx context.Context, req syncuc.Request) (*job.Job, error)
	Get(ctx context.Context, id string) (job.Snapshot, error)
	List(ctx context.Context) ([]job.Snapshot, error)
}

type queryUseCase interface {
	SearchByName(ctx context.Context, q queryuc.NameQuery) (result.Page, error)
	SearchByRegion(ctx context.Context, q queryuc.RegionQuery) (result.Page, error)
	SearchByProvince(ctx context.Context, q queryuc.ProvinceQuery) (result.Page, error)
	GetHotel(ctx context.Context, index, id string) (domdoc.Document, error)
}

// Client is the hoteldex SDK entry point.
type Client struct {
	store     db.Store
	syncSvc   syncUseCase
	querySvc  queryUseCase
	healthSvc healthUseCase
	language  string
	obs       *observer
}

// New creates a hoteldex Client and connects to Redis.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:    "hoteldex:",
		language:     "en",
		batchSize:    load.DefaultBatchSize,
		hotelIndex:   "hotels",
		regionIndex:  "regions",
		liveFallback: true,
		workspace:    os.TempDir(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("hoteldex: redis address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("hoteldex: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("hoteldex: redis not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	index := indexrepo.New(store, cfg.keyPrefix)
	jobs := jobrepo.New(store, cfg.keyPrefix, defaultJobTTL)
	rh := ratehawk.New(ratehawk.Config{
		BaseURL:  cfg.providerBaseURL,
		KeyID:    cfg.keyID,
		APIKey:   cfg.apiKey,
		Language: cfg.language,
	})

	orch := syncuc.NewOrchestrator(syncuc.Deps{
		Fetcher:      dump.NewFetcher(defaultDownloadTimeout, defaultChunkSize),
		Decompressor: dump.NewDecompressor(defaultChunkSize, defaultMaxWindow),
		Filter:       dump.NewFilter(defaultChunkSize),
		Loader:       load.New(index).WithBatchSize(cfg.batchSize).WithMaxSamples(defaultMaxSamples),
		Resolver:     rh,
		Store:        jobs,
	}, cfg.workspace)

	registry := syncuc.NewRegistry(orch, jobs, syncuc.Options{
		Source:        rh.Name(),
		MaxConcurrent: 1,
		MaxSamples:    defaultMaxSamples,
	}).WithLock(jobs)

	// Live lookups need credentials; without them only the index answers.
	var live queryuc.Live
	if rh.Configured() {
		live = rh
	}
	querySvc := queryuc.New(index, live, cfg.hotelIndex, cfg.regionIndex).
		WithLiveFallback(cfg.liveFallback)

	return &Client{
		store:     store,
		syncSvc:   registry,
		querySvc:  querySvc,
		healthSvc: healthuc.New(store, rh).WithIndexes(index, cfg.hotelIndex, cfg.regionIndex),
		language:  cfg.language,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Sync returns the dump sync service.
func (c *Client) Sync() *SyncService {
	return &SyncService{svc: c.syncSvc, obs: c.obs}
}

// Lookup returns the hotel and region lookup service.
func (c *Client) Lookup() *LookupService {
	return &LookupService{svc: c.querySvc, language: c.language, obs: c.obs}
}

// withLogger carries the SDK logger into internal services.
func (o *observer) withLogger(ctx context.Context) context.Context {
	if o == nil || o.logger == nil {
		return ctx
	}
	return logger.ContextWithLogger(ctx, o.logger)
}
