// Package batch tracks per-record outcomes of a bulk load.
package batch

import "fmt"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	id     string
	line   int
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string, line int) Result { return Result{id: id, line: line, status: StatusOK} }

// NewError creates a failed batch result. id may be empty when the record
// never got far enough to have one.
func NewError(id string, line int, err error) Result {
	return Result{id: id, line: line, status: StatusError, err: err}
}

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Line returns the 1-based line number in the source file.
func (r Result) Line() int { return r.line }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// String renders a failure for an error sample.
func (r Result) String() string {
	if r.status == StatusOK {
		return fmt.Sprintf("line %d (%s): ok", r.line, r.id)
	}
	if r.id == "" {
		return fmt.Sprintf("line %d: %v", r.line, r.err)
	}
	return fmt.Sprintf("line %d (%s): %v", r.line, r.id, r.err)
}

// Report aggregates results and keeps the first few failures as samples.
type Report struct {
	loaded     int64
	failed     int64
	samples    []string
	maxSamples int
}

// NewReport creates a report keeping up to maxSamples failure samples.
func NewReport(maxSamples int) *Report {
	if maxSamples < 0 {
		maxSamples = 0
	}
	return &Report{maxSamples: maxSamples}
}

// Add records one result.
func (r *Report) Add(res Result) {
	if res.status == StatusOK {
		r.loaded++
		return
	}
	r.failed++
	if len(r.samples) < r.maxSamples {
		r.samples = append(r.samples, res.String())
	}
}

// Loaded returns the number of stored records.
func (r *Report) Loaded() int64 { return r.loaded }

// Failed returns the number of rejected records.
func (r *Report) Failed() int64 { return r.failed }

// Samples returns a copy of the retained failure samples.
func (r *Report) Samples() []string { return append([]string(nil), r.samples...) }
