// Package scheduler submits periodic sync jobs on jittered tickers.
package scheduler

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

// Submitter starts a sync job in the background.
type Submitter interface {
	Submit(ctx context.Context, req syncuc.Request) (*job.Job, error)
}

// Entry is one periodic sync.
type Entry struct {
	Request  syncuc.Request
	Interval time.Duration
}

// Scheduler ticks every entry independently. Ticks are spread with normal
// jitter so that replicas started together do not hit the provider at once.
type Scheduler struct {
	submitter Submitter
	entries   []Entry
	jitter    func(interval time.Duration) jitterbug.Jitter
}

// New creates a scheduler.
func New(submitter Submitter, entries []Entry) *Scheduler {
	return &Scheduler{
		submitter: submitter,
		entries:   entries,
		jitter: func(interval time.Duration) jitterbug.Jitter {
			return &jitterbug.Norm{Stdev: interval / 20}
		},
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	if len(s.entries) == 0 {
		log.Debug("no sync schedules configured")
		return
	}

	var wg gosync.WaitGroup
	for _, e := range s.entries {
		wg.Add(1)
		go func(e Entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	log.Info("scheduler started", zap.Int("schedules", len(s.entries)))
	wg.Wait()
	log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, e Entry) {
	ticker := jitterbug.New(e.Interval, s.jitter(e.Interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, e)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, e Entry) {
	log := logger.FromContext(ctx).With(
		zap.String("kind", e.Request.Kind),
		zap.String("index", e.Request.Index),
		zap.String("country", e.Request.Country),
	)
	j, err := s.submitter.Submit(ctx, e.Request)
	switch {
	case err == nil:
		log.Info("scheduled sync submitted", zap.String("job_id", j.ID()))
	case errors.Is(err, domain.ErrJobInFlight):
		log.Debug("scheduled sync skipped, previous run still in flight")
	default:
		log.Error("scheduled sync rejected", zap.Error(err))
	}
}
