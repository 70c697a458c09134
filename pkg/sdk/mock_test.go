package hoteldex

import (
	"context"
	"time"

	domdoc "github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/hoteldex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/hoteldex/internal/usecase/query"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

// --- syncUseCase mock ---

type mockSyncUC struct {
	runFn  func(ctx context.Context, req syncuc.Request) (*job.Job, error)
	getFn  func(ctx context.Context, id string) (job.Snapshot, error)
	listFn func(ctx context.Context) ([]job.Snapshot, error)
}

func (m *mockSyncUC) Run(ctx context.Context, req syncuc.Request) (*job.Job, error) {
	return m.runFn(ctx, req)
}

func (m *mockSyncUC) Get(ctx context.Context, id string) (job.Snapshot, error) {
	return m.getFn(ctx, id)
}

func (m *mockSyncUC) List(ctx context.Context) ([]job.Snapshot, error) {
	return m.listFn(ctx)
}

// --- queryUseCase mock ---

type mockQueryUC struct {
	nameFn     func(ctx context.Context, q queryuc.NameQuery) (result.Page, error)
	regionFn   func(ctx context.Context, q queryuc.RegionQuery) (result.Page, error)
	provinceFn func(ctx context.Context, q queryuc.ProvinceQuery) (result.Page, error)
	getFn      func(ctx context.Context, index, id string) (domdoc.Document, error)
}

func (m *mockQueryUC) SearchByName(ctx context.Context, q queryuc.NameQuery) (result.Page, error) {
	return m.nameFn(ctx, q)
}

func (m *mockQueryUC) SearchByRegion(ctx context.Context, q queryuc.RegionQuery) (result.Page, error) {
	return m.regionFn(ctx, q)
}

func (m *mockQueryUC) SearchByProvince(ctx context.Context, q queryuc.ProvinceQuery) (result.Page, error) {
	return m.provinceFn(ctx, q)
}

func (m *mockQueryUC) GetHotel(ctx context.Context, index, id string) (domdoc.Document, error) {
	return m.getFn(ctx, index, id)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testJob(status job.Status) *job.Job {
	spec := job.Spec{Source: "ratehawk", Kind: job.KindHotel, Index: "hotels_it", Country: "IT"}
	now := time.Unix(1700000000, 0)
	j := job.New("job-1", spec, now, 10)
	if status == job.StatusInit {
		return j
	}
	for _, s := range []job.Status{job.StatusFetching, job.StatusDecompressing, job.StatusFiltering, job.StatusLoading} {
		_ = j.Advance(s, now)
	}
	_ = j.RecordFilter(5, 3, 0)
	_ = j.RecordLoad(3, 0, nil)
	if status == job.StatusFailed {
		_ = j.Fail(errTest, now)
		return j
	}
	_ = j.Complete(now)
	return j
}

func ptr[T any](v T) *T { return &v }
