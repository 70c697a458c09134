package health

import (
	"context"
	"errors"

	"github.com/kailas-cloud/hoteldex/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the index service is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckMissing indicates an index that has not been created yet.
	CheckMissing CheckResult = "missing"
	// CheckUnconfigured indicates a provider without credentials.
	CheckUnconfigured CheckResult = "unconfigured"
)

// IndexStatus is the state of one query index.
type IndexStatus struct {
	Status CheckResult `json:"status"`
	Docs   int64       `json:"docs"`
}

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Indexes map[string]IndexStatus
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	provider ProviderChecker
	counter  IndexCounter
	indexes  []string
}

// New creates a Service. provider can be nil.
func New(db DBPinger, provider ProviderChecker) *Service {
	return &Service{db: db, provider: provider}
}

// WithIndexes adds per-index document counts to the report.
func (s *Service) WithIndexes(counter IndexCounter, names ...string) *Service {
	s.counter = counter
	s.indexes = names
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		status = Unhealthy
	} else {
		checks["database"] = CheckOK
	}

	if s.provider != nil {
		key := "provider:" + s.provider.Name()
		if s.provider.Configured() {
			checks[key] = CheckOK
		} else {
			checks[key] = CheckUnconfigured
			if status == Healthy {
				status = Degraded
			}
		}
	}

	var indexes map[string]IndexStatus
	if s.counter != nil && checks["database"] == CheckOK {
		indexes = make(map[string]IndexStatus, len(s.indexes))
		for _, name := range s.indexes {
			n, err := s.counter.Count(ctx, name)
			switch {
			case err == nil:
				indexes[name] = IndexStatus{Status: CheckOK, Docs: n}
			case errors.Is(err, domain.ErrNotFound):
				indexes[name] = IndexStatus{Status: CheckMissing}
			default:
				indexes[name] = IndexStatus{Status: CheckError}
				if status == Healthy {
					status = Degraded
				}
			}
		}
	}

	return Report{Status: status, Checks: checks, Indexes: indexes}
}
