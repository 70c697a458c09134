// Package sync runs dump synchronization jobs: the staged pipeline and the
// single-flight registry that schedules it.
package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/metrics"
	"github.com/kailas-cloud/hoteldex/internal/provider"
	"github.com/kailas-cloud/hoteldex/internal/usecase/load"
)

// Workspace file names.
const (
	archiveFile  = "dump.archive"
	plainFile    = "dump.jsonl"
	filteredFile = "filtered.jsonl"
)

// Orchestrator runs Fetch, Decompress, Filter and Load for one job inside a
// private workspace that is removed on every exit path.
type Orchestrator struct {
	fetcher       Fetcher
	decompressor  Decompressor
	filter        Filter
	loader        Loader
	resolver      DumpResolver
	store         JobStore
	workspaceRoot string
	now           func() time.Time
}

// Deps are the stage implementations of an Orchestrator.
type Deps struct {
	Fetcher      Fetcher
	Decompressor Decompressor
	Filter       Filter
	Loader       Loader
	Resolver     DumpResolver
	Store        JobStore
}

// NewOrchestrator creates an orchestrator. Resolver and Store may be nil:
// without a resolver every request must carry a URL, without a store
// transitions are not persisted.
func NewOrchestrator(d Deps, workspaceRoot string) *Orchestrator {
	return &Orchestrator{
		fetcher:       d.Fetcher,
		decompressor:  d.Decompressor,
		filter:        d.Filter,
		loader:        d.Loader,
		resolver:      d.Resolver,
		store:         d.Store,
		workspaceRoot: workspaceRoot,
		now:           time.Now,
	}
}

// Run drives j from INIT to DONE, or to FAILED on the first fatal stage
// error, which is returned as a *domain.StageError. Record-level problems
// never fail the job.
func (o *Orchestrator) Run(ctx context.Context, j *job.Job) (err error) {
	spec := j.Spec()
	ctx = logger.With(ctx,
		zap.String("job_id", j.ID()),
		zap.String("source", spec.Source),
		zap.String("index", spec.Index),
		zap.String("kind", string(spec.Kind)),
	)
	log := logger.FromContext(ctx)

	defer func() {
		status := j.Status()
		metrics.SyncJobsTotal.WithLabelValues(string(spec.Kind), string(status)).Inc()
		o.persist(ctx, j)
		if err != nil {
			log.Error("sync failed", zap.Error(err))
			return
		}
		snap := j.Snapshot()
		log.Info("sync done",
			zap.Int64("total_seen", snap.Counts.TotalSeen),
			zap.Int64("matched", snap.Counts.Matched),
			zap.Int64("loaded", snap.Counts.Loaded),
			zap.Int64("load_errors", snap.Counts.LoadErrors),
		)
	}()

	ws, err := o.workspace(j.ID())
	if err != nil {
		return o.fail(j, domain.NewStageError(domain.StageFetch, err))
	}
	defer func() {
		if rmErr := os.RemoveAll(ws); rmErr != nil {
			log.Warn("workspace cleanup failed", zap.String("workspace", ws), zap.Error(rmErr))
		}
	}()
	j.SetWorkspace(ws)

	archive := filepath.Join(ws, archiveFile)
	plain := filepath.Join(ws, plainFile)
	filtered := filepath.Join(ws, filteredFile)

	stages := []struct {
		status job.Status
		stage  domain.Stage
		run    func(context.Context) error
	}{
		{job.StatusFetching, domain.StageFetch, func(ctx context.Context) error {
			return o.fetch(ctx, j, archive)
		}},
		{job.StatusDecompressing, domain.StageDecompress, func(ctx context.Context) error {
			_, err := o.decompressor.Decompress(ctx, archive, plain)
			return err //nolint:wrapcheck // wrapped as a stage error
		}},
		{job.StatusFiltering, domain.StageFilter, func(ctx context.Context) error {
			return o.runFilter(ctx, j, plain, filtered)
		}},
		{job.StatusLoading, domain.StageLoad, func(ctx context.Context) error {
			return o.load(ctx, j, filtered)
		}},
	}

	for _, st := range stages {
		if err := j.Advance(st.status, o.now()); err != nil {
			return o.fail(j, domain.NewStageError(st.stage, err))
		}
		o.persist(ctx, j)
		log.Info("stage started", zap.String("stage", string(st.stage)))

		start := time.Now()
		stageErr := st.run(ctx)
		outcome := "ok"
		if stageErr != nil {
			outcome = "error"
		}
		metrics.SyncStageDuration.WithLabelValues(string(st.stage), outcome).Observe(time.Since(start).Seconds())

		if stageErr != nil {
			return o.fail(j, domain.NewStageError(st.stage, stageErr))
		}
	}

	if err := j.Complete(o.now()); err != nil {
		return o.fail(j, domain.NewStageError(domain.StageLoad, err))
	}
	return nil
}

func (o *Orchestrator) workspace(id string) (string, error) {
	if err := os.MkdirAll(o.workspaceRoot, 0o750); err != nil {
		return "", fmt.Errorf("workspace root: %w", err)
	}
	ws, err := os.MkdirTemp(o.workspaceRoot, id+"-")
	if err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	return ws, nil
}

// fetch resolves the dump URL through the provider when the request has
// none, then downloads it.
func (o *Orchestrator) fetch(ctx context.Context, j *job.Job, dest string) error {
	spec := j.Spec()
	url := spec.URL
	if url == "" {
		if o.resolver == nil {
			return fmt.Errorf("%w: no dump url and no provider", domain.ErrConfiguration)
		}
		if !o.resolver.Capabilities().Has(provider.DumpCapability(spec.Kind)) {
			return provider.Unsupported(o.resolver.Name(), provider.DumpCapability(spec.Kind))
		}
		resolved, err := o.resolver.DumpURL(ctx, provider.DumpRequest{
			Kind: spec.Kind, Country: spec.Country, Language: spec.Language,
		})
		if err != nil {
			return fmt.Errorf("resolve dump url: %w", err)
		}
		url = resolved
		j.SetURL(url)
	}

	n, err := o.fetcher.Fetch(ctx, url, dest)
	if err != nil {
		return err //nolint:wrapcheck // wrapped as a stage error
	}
	logger.FromContext(ctx).Debug("archive ready", zap.Int64("bytes", n))
	return nil
}

func (o *Orchestrator) runFilter(ctx context.Context, j *job.Job, src, dest string) error {
	spec := j.Spec()
	stats, err := o.filter.Filter(ctx, src, dest, spec.Country)
	if err != nil {
		return err //nolint:wrapcheck // wrapped as a stage error
	}
	if err := j.RecordFilter(stats.Total, stats.Matched, stats.Malformed); err != nil {
		return err //nolint:wrapcheck // wrapped as a stage error
	}

	kind := string(spec.Kind)
	metrics.SyncRecordsTotal.WithLabelValues(kind, "seen").Add(float64(stats.Total))
	metrics.SyncRecordsTotal.WithLabelValues(kind, "matched").Add(float64(stats.Matched))
	metrics.SyncRecordsTotal.WithLabelValues(kind, "malformed").Add(float64(stats.Malformed))
	return nil
}

func (o *Orchestrator) load(ctx context.Context, j *job.Job, path string) error {
	spec := j.Spec()
	desc, err := index.For(spec.Kind, spec.Index)
	if err != nil {
		return err //nolint:wrapcheck // wrapped as a stage error
	}
	if err := o.loader.EnsureIndex(ctx, desc); err != nil {
		return err //nolint:wrapcheck // wrapped as a stage error
	}
	stats, err := o.loader.Load(ctx, path, desc, load.WithLanguage(spec.Language))
	if err != nil {
		return err //nolint:wrapcheck // wrapped as a stage error
	}
	return j.RecordLoad(stats.Loaded, stats.Failed, stats.Samples) //nolint:wrapcheck // wrapped as a stage error
}

func (o *Orchestrator) fail(j *job.Job, err error) error {
	if failErr := j.Fail(err, o.now()); failErr != nil {
		return fmt.Errorf("%w (while recording: %w)", err, failErr)
	}
	return err
}

// persist saves the snapshot on a context that survives job cancellation so
// the final state is never lost to a timeout.
func (o *Orchestrator) persist(ctx context.Context, j *job.Job) {
	if o.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.store.Save(ctx, j.Snapshot()); err != nil {
		logger.FromContext(ctx).Warn("job snapshot not saved", zap.Error(err))
	}
}
