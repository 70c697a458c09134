// Package chi is the HTTP transport: sync control endpoints, lookups,
// health and metrics on a chi router.
package chi

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/hoteldex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/hoteldex/internal/usecase/query"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

// SyncService starts and reports sync jobs.
type SyncService interface {
	Submit(ctx context.Context, req syncuc.Request) (*job.Job, error)
	Get(ctx context.Context, id string) (job.Snapshot, error)
	List(ctx context.Context) ([]job.Snapshot, error)
}

// QueryService answers lookups.
type QueryService interface {
	SearchByName(ctx context.Context, q queryuc.NameQuery) (result.Page, error)
	SearchByRegion(ctx context.Context, q queryuc.RegionQuery) (result.Page, error)
	SearchByProvince(ctx context.Context, q queryuc.ProvinceQuery) (result.Page, error)
	GetHotel(ctx context.Context, index, id string) (document.Document, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	sync          SyncService
	query         QueryService
	health        HealthChecker
	logger        *zap.Logger
	validate      *requestValidator
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(sync SyncService, query QueryService, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		sync:          sync,
		query:         query,
		health:        health,
		logger:        logger,
		validate:      newRequestValidator(syncRules...),
		errorHandlers: defaultErrorHandlers(),
	}
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Indexes map[string]healthuc.IndexStatus `json:"indexes,omitempty"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Indexes: report.Indexes,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
