package hoteldex

import (
	"context"

	healthuc "github.com/kailas-cloud/hoteldex/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status  string            // "ok", "degraded", "error"
	Checks  map[string]string // component → "ok"/"error"/"unconfigured"
	Indexes map[string]IndexHealth
}

// IndexHealth is the state of one lookup index.
type IndexHealth struct {
	Status string // "ok", "missing", "error"
	Docs   int64
}

// Health checks the index service, the provider credentials and the
// lookup indexes.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	indexes := make(map[string]IndexHealth, len(report.Indexes))
	for k, v := range report.Indexes {
		indexes[k] = IndexHealth{Status: string(v.Status), Docs: v.Docs}
	}
	return HealthStatus{
		Status:  string(report.Status),
		Checks:  checks,
		Indexes: indexes,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
