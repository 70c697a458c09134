package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	queryuc "github.com/kailas-cloud/hoteldex/internal/usecase/query"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
)

const maxBodyBytes = 64 << 10

// syncRequest is the body of POST /sync.
type syncRequest struct {
	Source   string `json:"source" validate:"omitempty,max=32"`
	Kind     string `json:"kind" validate:"required,oneof=hotel region"`
	Index    string `json:"index" validate:"required,index_name"`
	Country  string `json:"country" validate:"required,country_code"`
	Language string `json:"language" validate:"omitempty,max=8"`
	URL      string `json:"url" validate:"omitempty,url"`
}

// jobListResponse is the body of GET /sync/jobs.
type jobListResponse struct {
	Items []job.Snapshot `json:"items"`
	Total int            `json:"total"`
}

// StartSync handles POST /sync.
func (s *Server) StartSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	j, err := s.sync.Submit(r.Context(), syncuc.Request{
		Source:   req.Source,
		Kind:     req.Kind,
		Index:    req.Index,
		Country:  req.Country,
		Language: req.Language,
		URL:      req.URL,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/sync/jobs/"+j.ID())
	writeJSON(w, http.StatusAccepted, j.Snapshot())
}

// ListJobs handles GET /sync/jobs.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.sync.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobListResponse{Items: jobs, Total: len(jobs)})
}

// GetJob handles GET /sync/jobs/{id}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sync.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HotelsByNameParams are the query parameters of GET /hotels/name.
type HotelsByNameParams struct {
	Name     string
	Language *string
	Index    *string
}

// HotelsByName handles GET /hotels/name.
func (s *Server) HotelsByName(w http.ResponseWriter, r *http.Request) {
	var params HotelsByNameParams
	q := r.URL.Query()
	if err := bindAll(
		runtime.BindQueryParameter("form", true, true, "name", q, &params.Name),
		runtime.BindQueryParameter("form", true, false, "language", q, &params.Language),
		runtime.BindQueryParameter("form", true, false, "index", q, &params.Index),
	); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page, err := s.query.SearchByName(r.Context(), queryuc.NameQuery{
		Text:     params.Name,
		Language: deref(params.Language),
		Index:    deref(params.Index),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HotelsByRegionParams are the query parameters of GET /hotels/region.
type HotelsByRegionParams struct {
	RegionID string
	Index    *string
}

// HotelsByRegion handles GET /hotels/region.
func (s *Server) HotelsByRegion(w http.ResponseWriter, r *http.Request) {
	var params HotelsByRegionParams
	q := r.URL.Query()
	if err := bindAll(
		runtime.BindQueryParameter("form", true, true, "region_id", q, &params.RegionID),
		runtime.BindQueryParameter("form", true, false, "index", q, &params.Index),
	); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page, err := s.query.SearchByRegion(r.Context(), queryuc.RegionQuery{
		RegionID: params.RegionID,
		Index:    deref(params.Index),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ProvincesByNameParams are the query parameters of GET /regions/province.
type ProvincesByNameParams struct {
	Name     string
	Language *string
	Index    *string
}

// ProvincesByName handles GET /regions/province.
func (s *Server) ProvincesByName(w http.ResponseWriter, r *http.Request) {
	var params ProvincesByNameParams
	q := r.URL.Query()
	if err := bindAll(
		runtime.BindQueryParameter("form", true, true, "name", q, &params.Name),
		runtime.BindQueryParameter("form", true, false, "language", q, &params.Language),
		runtime.BindQueryParameter("form", true, false, "index", q, &params.Index),
	); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page, err := s.query.SearchByProvince(r.Context(), queryuc.ProvinceQuery{
		Name:     params.Name,
		Language: deref(params.Language),
		Index:    deref(params.Index),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetHotel handles GET /hotels/{id}.
func (s *Server) GetHotel(w http.ResponseWriter, r *http.Request) {
	var index *string
	if err := runtime.BindQueryParameter("form", true, false, "index", r.URL.Query(), &index); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	doc, err := s.query.GetHotel(r.Context(), deref(index), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l := logger.FromContext(r.Context()); l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return s.logger
}

// bindAll returns the first binding error.
func bindAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
