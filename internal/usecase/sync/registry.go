package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/metrics"
)

// DefaultListLimit caps List.
const DefaultListLimit = 50

// finishedRetention is how long finished jobs stay in memory after the
// persisted snapshot takes over.
const finishedRetention = 10 * time.Minute

// Shared slot timing. Without a job timeout the slot outlives a crashed
// holder by defaultSlotTTL.
const (
	defaultSlotTTL = 6 * time.Hour
	slotGrace      = time.Minute
	releaseTimeout = 5 * time.Second
)

// Request asks for one sync run.
type Request struct {
	Source   string `json:"source"`
	Kind     string `json:"kind"`
	Index    string `json:"index"`
	Country  string `json:"country"`
	Language string `json:"language,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Spec validates the request and normalises it into a job spec.
func (r Request) Spec(defaultSource string) (job.Spec, error) {
	kind, err := job.ParseKind(r.Kind)
	if err != nil {
		return job.Spec{}, err //nolint:wrapcheck // already a domain error
	}
	source := strings.ToLower(strings.TrimSpace(r.Source))
	if source == "" {
		source = defaultSource
	}
	if source == "" {
		return job.Spec{}, fmt.Errorf("%w: source is required", domain.ErrInvalidRequest)
	}
	if !index.ValidName(r.Index) {
		return job.Spec{}, fmt.Errorf("%w: invalid index name %q", domain.ErrInvalidRequest, r.Index)
	}
	country := strings.ToUpper(strings.TrimSpace(r.Country))
	if len(country) != 2 {
		return job.Spec{}, fmt.Errorf("%w: country must be an ISO 3166-1 alpha-2 code, got %q",
			domain.ErrInvalidRequest, r.Country)
	}
	return job.Spec{
		Source:   source,
		Kind:     kind,
		Index:    r.Index,
		Country:  country,
		Language: strings.ToLower(strings.TrimSpace(r.Language)),
		URL:      strings.TrimSpace(r.URL),
	}, nil
}

// Options configure a Registry.
type Options struct {
	Source        string
	MaxConcurrent int
	JobTimeout    time.Duration
	MaxSamples    int
}

// Registry owns the single-flight slot per (source, index), runs jobs on a
// bounded pool and answers status queries.
type Registry struct {
	runner Runner
	store  JobStore
	lock   SlotLock
	opts   Options

	mu     gosync.Mutex
	active map[string]*job.Job // spec key -> queued or running job
	jobs   map[string]*job.Job // id -> job known in memory

	sem   chan struct{}
	wg    gosync.WaitGroup
	newID func() string
	now   func() time.Time
}

// NewRegistry creates a registry. store may be nil.
func NewRegistry(runner Runner, store JobStore, opts Options) *Registry {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Registry{
		runner: runner,
		store:  store,
		opts:   opts,
		active: make(map[string]*job.Job),
		jobs:   make(map[string]*job.Job),
		sem:    make(chan struct{}, opts.MaxConcurrent),
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
}

// WithLock shares the single-flight slot through l, so registries in other
// processes see it too.
func (r *Registry) WithLock(l SlotLock) *Registry {
	r.lock = l
	return r
}

// Submit validates req, claims its slot and starts the job in the
// background. It returns as soon as the job is registered; the job runs on a
// context detached from ctx and bounded by the job timeout.
func (r *Registry) Submit(ctx context.Context, req Request) (*job.Job, error) {
	j, err := r.claim(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		_ = r.execute(runCtx, j) //nolint:errcheck // outcome is on the job
	}()
	return j, nil
}

// Run claims the slot and runs the job on the caller's goroutine. The
// returned error is the fatal stage error of a FAILED job.
func (r *Registry) Run(ctx context.Context, req Request) (*job.Job, error) {
	j, err := r.claim(ctx, req)
	if err != nil {
		return nil, err
	}
	r.sem <- struct{}{}
	defer func() { <-r.sem }()
	return j, r.execute(ctx, j)
}

func (r *Registry) claim(ctx context.Context, req Request) (*job.Job, error) {
	spec, err := req.Spec(r.opts.Source)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if cur, busy := r.active[spec.Key()]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s (job %s)", domain.ErrJobInFlight, spec.Key(), cur.ID())
	}
	r.pruneLocked()
	j := job.New(r.newID(), spec, r.now(), r.opts.MaxSamples)
	r.active[spec.Key()] = j
	r.mu.Unlock()

	if err := r.acquire(ctx, j); err != nil {
		r.mu.Lock()
		delete(r.active, spec.Key())
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.jobs[j.ID()] = j
	r.mu.Unlock()

	metrics.SyncJobsInFlight.Inc()
	if r.store != nil {
		if err := r.store.Save(ctx, j.Snapshot()); err != nil {
			logger.FromContext(ctx).Warn("job snapshot not saved", zap.String("job_id", j.ID()), zap.Error(err))
		}
	}
	logger.FromContext(ctx).Info("sync job accepted",
		zap.String("job_id", j.ID()),
		zap.String("source", spec.Source),
		zap.String("index", spec.Index),
		zap.String("country", spec.Country),
	)
	return j, nil
}

// acquire takes the shared slot for j when a lock is configured.
func (r *Registry) acquire(ctx context.Context, j *job.Job) error {
	if r.lock == nil {
		return nil
	}
	key := j.Spec().Key()
	ok, err := r.lock.Acquire(ctx, key, j.ID(), r.slotTTL())
	if err != nil {
		return fmt.Errorf("claim %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s (held by another process)", domain.ErrJobInFlight, key)
	}
	return nil
}

func (r *Registry) slotTTL() time.Duration {
	if r.opts.JobTimeout > 0 {
		return r.opts.JobTimeout + slotGrace
	}
	return defaultSlotTTL
}

func (r *Registry) execute(ctx context.Context, j *job.Job) error {
	defer r.release(ctx, j)
	if r.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.JobTimeout)
		defer cancel()
	}
	return r.runner.Run(ctx, j) //nolint:wrapcheck // stage errors carry their own context
}

// release frees the shared slot before the in-memory one, so a resubmit in
// this process never trips over its own stale claim.
func (r *Registry) release(ctx context.Context, j *job.Job) {
	if r.lock != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		if err := r.lock.Release(ctx, j.Spec().Key(), j.ID()); err != nil {
			logger.FromContext(ctx).Warn("sync slot not released, it expires on its own",
				zap.String("job_id", j.ID()), zap.Error(err))
		}
		cancel()
	}

	r.mu.Lock()
	if r.active[j.Spec().Key()] == j {
		delete(r.active, j.Spec().Key())
	}
	r.mu.Unlock()
	metrics.SyncJobsInFlight.Dec()
}

// pruneLocked forgets finished jobs past the retention window.
func (r *Registry) pruneLocked() {
	cutoff := r.now().Add(-finishedRetention)
	for id, j := range r.jobs {
		snap := j.Snapshot()
		if snap.Status.Terminal() && snap.FinishedAt != nil && snap.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

// Get returns a job snapshot from memory, then from the store.
func (r *Registry) Get(ctx context.Context, id string) (job.Snapshot, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if ok {
		return j.Snapshot(), nil
	}
	if r.store == nil {
		return job.Snapshot{}, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	snap, err := r.store.Get(ctx, id)
	if err != nil {
		return job.Snapshot{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return snap, nil
}

// List returns recent jobs, newest first. In-memory state wins over the
// persisted copy of the same job.
func (r *Registry) List(ctx context.Context) ([]job.Snapshot, error) {
	byID := make(map[string]job.Snapshot)
	if r.store != nil {
		persisted, err := r.store.List(ctx, DefaultListLimit)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		for _, s := range persisted {
			byID[s.ID] = s
		}
	}

	r.mu.Lock()
	for id, j := range r.jobs {
		byID[id] = j.Snapshot()
	}
	r.mu.Unlock()

	out := make([]job.Snapshot, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	if len(out) > DefaultListLimit {
		out = out[:DefaultListLimit]
	}
	return out, nil
}

// Wait blocks until every background job has finished.
func (r *Registry) Wait() {
	r.wg.Wait()
}
