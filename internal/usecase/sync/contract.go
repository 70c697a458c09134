package sync

import (
	"context"
	"time"

	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/dump"
	"github.com/kailas-cloud/hoteldex/internal/provider"
	"github.com/kailas-cloud/hoteldex/internal/usecase/load"
)

// Fetcher downloads a dump to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) (int64, error)
}

// Decompressor expands an archive into plain JSONL.
type Decompressor interface {
	Decompress(ctx context.Context, src, dest string) (int64, error)
}

// Filter keeps the lines of one country.
type Filter interface {
	Filter(ctx context.Context, src, dest, country string) (dump.FilterStats, error)
}

// Loader writes a filtered file into an index.
type Loader interface {
	EnsureIndex(ctx context.Context, desc domidx.Descriptor) error
	Load(ctx context.Context, path string, desc domidx.Descriptor, opts ...load.LoadOption) (load.Stats, error)
}

// DumpResolver turns a dump request into a download URL.
type DumpResolver interface {
	Name() string
	Capabilities() provider.Capabilities
	DumpURL(ctx context.Context, req provider.DumpRequest) (string, error)
}

// JobStore persists job snapshots.
type JobStore interface {
	Save(ctx context.Context, snap job.Snapshot) error
	Get(ctx context.Context, id string) (job.Snapshot, error)
	List(ctx context.Context, limit int) ([]job.Snapshot, error)
}

// SlotLock holds the single-flight slot of a (source, index) pair across
// processes that share the job store.
type SlotLock interface {
	Acquire(ctx context.Context, specKey, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, specKey, owner string) error
}

// Runner executes one job to completion.
type Runner interface {
	Run(ctx context.Context, j *job.Job) error
}
