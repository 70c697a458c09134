// Package job models one dump synchronization run and its state machine.
package job

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/hoteldex/internal/domain"
)

// DefaultMaxSamples bounds the error samples kept on a job.
const DefaultMaxSamples = 10

// Status is the lifecycle state of a job.
type Status string

// Job statuses in transition order. FAILED is reachable from any non-terminal state.
const (
	StatusInit          Status = "INIT"
	StatusFetching      Status = "FETCHING"
	StatusDecompressing Status = "DECOMPRESSING"
	StatusFiltering     Status = "FILTERING"
	StatusLoading       Status = "LOADING"
	StatusDone          Status = "DONE"
	StatusFailed        Status = "FAILED"
)

var statusOrder = map[Status]int{
	StatusInit:          0,
	StatusFetching:      1,
	StatusDecompressing: 2,
	StatusFiltering:     3,
	StatusLoading:       4,
	StatusDone:          5,
	StatusFailed:        5,
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Kind selects the dump flavour and the document projection.
type Kind string

// Dump kinds.
const (
	KindHotel  Kind = "hotel"
	KindRegion Kind = "region"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindHotel, KindRegion:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRequest, s)
	}
}

// Spec is the immutable request a job was created from.
type Spec struct {
	Source   string `json:"source"`
	Kind     Kind   `json:"kind"`
	Index    string `json:"index"`
	Country  string `json:"country"`
	Language string `json:"language,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Key identifies the single-flight slot: one running job per (source, index).
func (s Spec) Key() string { return s.Source + "/" + s.Index }

// Counts are the per-stage record counters of a job.
type Counts struct {
	TotalSeen        int64 `json:"total_seen"`
	Matched          int64 `json:"matched"`
	SkippedMalformed int64 `json:"skipped_malformed"`
	Loaded           int64 `json:"loaded"`
	LoadErrors       int64 `json:"load_errors"`
}

// Snapshot is a point-in-time copy of a job, safe to serialize and share.
type Snapshot struct {
	ID         string     `json:"job_id"`
	Spec       Spec       `json:"spec"`
	Status     Status     `json:"status"`
	Counts     Counts     `json:"counts"`
	Workspace  string     `json:"workspace,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Samples    []string   `json:"error_samples,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorStage string     `json:"error_stage,omitempty"`
}

// Job is a mutable, concurrency-safe sync run.
type Job struct {
	mu         sync.RWMutex
	snap       Snapshot
	maxSamples int
}

// New creates a job in INIT.
func New(id string, spec Spec, now time.Time, maxSamples int) *Job {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Job{
		snap: Snapshot{
			ID:        id,
			Spec:      spec,
			Status:    StatusInit,
			CreatedAt: now.UTC(),
		},
		maxSamples: maxSamples,
	}
}

// FromSnapshot restores a read-only view of a persisted job.
func FromSnapshot(s Snapshot) *Job {
	return &Job{snap: s.clone(), maxSamples: DefaultMaxSamples}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.snap.ID }

// Spec returns the request the job was created from.
func (j *Job) Spec() Spec {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snap.Spec
}

// Status returns the current status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snap.Status
}

// Snapshot returns a deep copy of the job state. The dump URL is reduced to
// scheme, host and path; Spec keeps the full one for the download.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := j.snap.clone()
	out.Spec.URL = RedactURL(out.Spec.URL)
	return out
}

// SetURL records the resolved dump URL.
func (j *Job) SetURL(rawURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snap.Spec.URL = rawURL
}

// RedactURL drops credentials, query and fragment from a URL, so signed
// download links can be logged and persisted. Unparsable input yields "".
func RedactURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// SetWorkspace records the private workspace directory.
func (j *Job) SetWorkspace(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snap.Workspace = path
}

// Advance moves the job to the next non-terminal status. Skipping back or
// sideways, or leaving a terminal state, is ErrInvalidTransition.
func (j *Job) Advance(to Status, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	from := j.snap.Status
	if from.Terminal() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrJobFinished, from, to)
	}
	if to.Terminal() || !to.Valid() || statusOrder[to] != statusOrder[from]+1 {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	j.snap.Status = to
	if from == StatusInit {
		t := now.UTC()
		j.snap.StartedAt = &t
	}
	return nil
}

// Complete finishes a job that reached LOADING.
func (j *Job) Complete(now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.snap.Status.Terminal() {
		return domain.ErrJobFinished
	}
	if j.snap.Status != StatusLoading {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, j.snap.Status, StatusDone)
	}
	j.finish(StatusDone, now)
	return nil
}

// Fail finishes the job with a fatal error. The failing stage is taken from a
// *domain.StageError, or is the current status otherwise.
func (j *Job) Fail(err error, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.snap.Status.Terminal() {
		return domain.ErrJobFinished
	}

	stage := string(j.snap.Status)
	var se *domain.StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
	}
	if err != nil {
		j.snap.Error = err.Error()
	}
	j.snap.ErrorStage = stage
	j.finish(StatusFailed, now)
	return nil
}

func (j *Job) finish(status Status, now time.Time) {
	t := now.UTC()
	j.snap.Status = status
	j.snap.FinishedAt = &t
}

// RecordFilter stores the filter counters. matched + malformed must not exceed total.
func (j *Job) RecordFilter(total, matched, malformed int64) error {
	if total < 0 || matched < 0 || malformed < 0 || matched+malformed > total {
		return fmt.Errorf("%w: matched %d + malformed %d > total %d",
			domain.ErrInvalidRequest, matched, malformed, total)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.snap.Counts.TotalSeen = total
	j.snap.Counts.Matched = matched
	j.snap.Counts.SkippedMalformed = malformed
	return nil
}

// RecordLoad stores the load counters and appends samples up to the bound.
// loaded must not exceed the matched count.
func (j *Job) RecordLoad(loaded, failed int64, samples []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if loaded < 0 || failed < 0 || loaded > j.snap.Counts.Matched {
		return fmt.Errorf("%w: loaded %d > matched %d",
			domain.ErrInvalidRequest, loaded, j.snap.Counts.Matched)
	}
	j.snap.Counts.Loaded = loaded
	j.snap.Counts.LoadErrors = failed
	for _, s := range samples {
		if len(j.snap.Samples) >= j.maxSamples {
			break
		}
		j.snap.Samples = append(j.snap.Samples, s)
	}
	return nil
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Samples != nil {
		out.Samples = append([]string(nil), s.Samples...)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
