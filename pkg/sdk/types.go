package hoteldex

import (
	"time"

	domdoc "github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
)

// SyncRequest asks for one dump sync.
type SyncRequest struct {
	Kind     string // "hotel" or "region"
	Country  string // ISO 3166-1 alpha-2
	Index    string
	Language string // optional, provider default otherwise
	URL      string // optional, skips provider resolution
}

// Job is the state of a sync job.
type Job struct {
	ID         string
	Status     string // INIT, FETCHING, DECOMPRESSING, FILTERING, LOADING, DONE, FAILED
	Source     string
	Kind       string
	Index      string
	Country    string
	Counts     JobCounts
	Samples    []string
	Error      string
	ErrorStage string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Done reports whether the job finished successfully.
func (j Job) Done() bool { return j.Status == string(job.StatusDone) }

// JobCounts are the record counters of a job.
type JobCounts struct {
	TotalSeen        int64
	Matched          int64
	SkippedMalformed int64
	Loaded           int64
	LoadErrors       int64
}

// Hotel is one lookup result. Regions use the same shape with Type and
// HotelsNumber set.
type Hotel struct {
	ID           string
	Name         string
	CountryCode  string
	CountryName  string
	RegionID     string
	RegionName   string
	Stars        *float64
	Rating       *float64
	Address      string
	Type         string
	HotelsNumber *int
	Score        float64
}

// Page is a ranked list of results and the path that served it.
type Page struct {
	Source  string // "index" or "live"
	Results []Hotel
}

func jobFromSnapshot(s job.Snapshot) Job {
	return Job{
		ID:         s.ID,
		Status:     string(s.Status),
		Source:     s.Spec.Source,
		Kind:       string(s.Spec.Kind),
		Index:      s.Spec.Index,
		Country:    s.Spec.Country,
		Counts:     JobCounts(s.Counts),
		Samples:    s.Samples,
		Error:      s.Error,
		ErrorStage: s.ErrorStage,
		CreatedAt:  s.CreatedAt,
		FinishedAt: s.FinishedAt,
	}
}

func hotelFromDocument(d domdoc.Document, score float64) Hotel {
	h := Hotel{
		ID:           d.ID,
		Name:         d.Name,
		CountryCode:  d.Country.Code,
		CountryName:  d.Country.Name,
		Stars:        d.Stars,
		Rating:       d.Rating,
		Address:      d.Address,
		Type:         d.Type,
		HotelsNumber: d.HotelsNumber,
		Score:        score,
	}
	if d.Region != nil {
		h.RegionID = d.Region.ID
		h.RegionName = d.Region.Name
	}
	return h
}

func pageFromResult(p result.Page) Page {
	out := Page{Source: string(p.Source), Results: make([]Hotel, len(p.Results))}
	for i, hit := range p.Results {
		out.Results[i] = hotelFromDocument(hit.Document, hit.Score)
	}
	return out
}
