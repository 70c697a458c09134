package hoteldex

import (
	"context"
	"fmt"
	"time"

	queryuc "github.com/kailas-cloud/hoteldex/internal/usecase/query"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

// SyncService runs dump syncs and reports past jobs.
type SyncService struct {
	svc syncUseCase
	obs *observer
}

// Run syncs one dump in the calling goroutine and returns the finished job.
// A FAILED job is returned together with its stage error, which matches
// ErrFetch, ErrDecompress, ErrFilter or ErrIndex.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (j Job, err error) {
	start := time.Now()
	defer func() { s.obs.observe("sync.run", start, err) }()

	running, err := s.svc.Run(s.obs.withLogger(ctx), syncuc.Request{
		Kind:     req.Kind,
		Index:    req.Index,
		Country:  req.Country,
		Language: req.Language,
		URL:      req.URL,
	})
	if running == nil {
		return Job{}, fmt.Errorf("sync: %w", err)
	}
	j = jobFromSnapshot(running.Snapshot())
	if err != nil {
		return j, fmt.Errorf("sync job %s: %w", j.ID, err)
	}
	return j, nil
}

// Get returns one job by id.
func (s *SyncService) Get(ctx context.Context, id string) (j Job, err error) {
	start := time.Now()
	defer func() { s.obs.observe("sync.get", start, err) }()

	snap, err := s.svc.Get(ctx, id)
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return jobFromSnapshot(snap), nil
}

// List returns recent jobs, newest first.
func (s *SyncService) List(ctx context.Context) (jobs []Job, err error) {
	start := time.Now()
	defer func() { s.obs.observe("sync.list", start, err) }()

	snaps, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs = make([]Job, len(snaps))
	for i, snap := range snaps {
		jobs[i] = jobFromSnapshot(snap)
	}
	return jobs, nil
}

// LookupService answers hotel and region lookups from the index, falling
// back to the live provider when the index has nothing.
type LookupService struct {
	svc      queryUseCase
	language string
	obs      *observer
}

// HotelsByName autocompletes hotel names. An empty language uses the
// client default.
func (l *LookupService) HotelsByName(ctx context.Context, name, language string) (p Page, err error) {
	start := time.Now()
	defer func() { l.obs.observe("lookup.hotels_by_name", start, err) }()

	res, err := l.svc.SearchByName(l.obs.withLogger(ctx), queryuc.NameQuery{
		Text:     name,
		Language: l.lang(language),
	})
	if err != nil {
		return Page{}, fmt.Errorf("hotels by name: %w", err)
	}
	return pageFromResult(res), nil
}

// HotelsByRegion lists the best rated hotels of a region.
func (l *LookupService) HotelsByRegion(ctx context.Context, regionID string) (p Page, err error) {
	start := time.Now()
	defer func() { l.obs.observe("lookup.hotels_by_region", start, err) }()

	res, err := l.svc.SearchByRegion(l.obs.withLogger(ctx), queryuc.RegionQuery{RegionID: regionID})
	if err != nil {
		return Page{}, fmt.Errorf("hotels by region: %w", err)
	}
	return pageFromResult(res), nil
}

// Provinces looks up state and city regions by name.
func (l *LookupService) Provinces(ctx context.Context, name, language string) (p Page, err error) {
	start := time.Now()
	defer func() { l.obs.observe("lookup.provinces", start, err) }()

	res, err := l.svc.SearchByProvince(l.obs.withLogger(ctx), queryuc.ProvinceQuery{
		Name:     name,
		Language: l.lang(language),
	})
	if err != nil {
		return Page{}, fmt.Errorf("provinces: %w", err)
	}
	return pageFromResult(res), nil
}

// Hotel returns one indexed hotel. An empty index uses the client default.
func (l *LookupService) Hotel(ctx context.Context, index, id string) (h Hotel, err error) {
	start := time.Now()
	defer func() { l.obs.observe("lookup.hotel", start, err) }()

	doc, err := l.svc.GetHotel(ctx, index, id)
	if err != nil {
		return Hotel{}, fmt.Errorf("get hotel: %w", err)
	}
	return hotelFromDocument(doc, 0), nil
}

func (l *LookupService) lang(language string) string {
	if language != "" {
		return language
	}
	return l.language
}
