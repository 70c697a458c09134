// Package query answers hotel and region lookups from the local index and
// falls back to the provider's live API when the index cannot answer.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/db"
	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/filter"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/request"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/metrics"
	"github.com/kailas-cloud/hoteldex/internal/provider"
)

// Result caps per operation.
const (
	NameLimit     = 10
	RegionLimit   = 50
	ProvinceLimit = 10
)

// Candidate windows. The index returns this many matches before Rank applies
// the tie-breaks and the cap, so equally scored matches past the cap still
// compete on rating, stars or hotels_number.
const (
	nameWindow     = 100
	regionWindow   = 200
	provinceWindow = 100
)

// Operation labels.
const (
	opName     = "hotels_by_name"
	opRegion   = "hotels_by_region"
	opProvince = "provinces"
)

// Fallback reasons.
const (
	reasonMissing = "index_missing"
	reasonError   = "index_error"
	reasonEmpty   = "empty"
)

// provinceTypes are the region types a province lookup returns.
var provinceTypes = []string{"state", "city"}

// NameQuery looks hotels up by name.
type NameQuery struct {
	Text     string
	Language string
	Index    string
}

// RegionQuery lists the hotels of one region.
type RegionQuery struct {
	RegionID string
	Index    string
}

// ProvinceQuery looks state and city regions up by name.
type ProvinceQuery struct {
	Name     string
	Language string
	Index    string
}

// Service answers lookups. The live provider is optional.
type Service struct {
	index       Index
	live        Live
	hotelIndex  string
	regionIndex string
	fallback    bool
}

// New creates a query service over the given default indexes.
func New(index Index, live Live, hotelIndex, regionIndex string) *Service {
	return &Service{
		index:       index,
		live:        live,
		hotelIndex:  hotelIndex,
		regionIndex: regionIndex,
		fallback:    live != nil,
	}
}

// WithLiveFallback turns the provider fallback on or off.
func (s *Service) WithLiveFallback(on bool) *Service {
	s.fallback = on && s.live != nil
	return s
}

// SearchByName ranks hotels by text score, then rating, then stars.
func (s *Service) SearchByName(ctx context.Context, q NameQuery) (result.Page, error) {
	req, err := newRequest(pick(q.Index, s.hotelIndex), q.Text, filter.Expression{}, NameLimit)
	if err != nil {
		return result.Page{}, err
	}
	req = req.WithWindow(nameWindow)
	return s.lookup(ctx, opName, req, provider.CapLiveHotelName,
		func(ctx context.Context) ([]document.Document, error) {
			return s.live.HotelsByName(ctx, req.Text(), q.Language, NameLimit)
		},
		result.Rating, result.Stars,
	)
}

// SearchByRegion lists the hotels of a region, best rated first.
func (s *Service) SearchByRegion(ctx context.Context, q RegionQuery) (result.Page, error) {
	regionID := strings.TrimSpace(q.RegionID)
	if regionID == "" {
		return result.Page{}, fmt.Errorf("%w: region_id is required", domain.ErrInvalidRequest)
	}
	cond, err := filter.NewMatch(domidx.FieldRegionID, regionID)
	if err != nil {
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	expr, err := filter.All(cond)
	if err != nil {
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	req, err := newRequest(pick(q.Index, s.hotelIndex), "", expr, RegionLimit)
	if err != nil {
		return result.Page{}, err
	}
	// A filter-only match scores every hotel the same, so the index orders
	// by rating and Rank settles ties on stars.
	req = req.WithSort(domidx.FieldRating, true).WithWindow(regionWindow)
	return s.lookup(ctx, opRegion, req, provider.CapLiveRegion,
		func(ctx context.Context) ([]document.Document, error) {
			return s.live.HotelsByRegion(ctx, regionID, RegionLimit)
		},
		result.Rating, result.Stars,
	)
}

// SearchByProvince finds state and city regions that have hotels, largest
// first among equally scored matches.
func (s *Service) SearchByProvince(ctx context.Context, q ProvinceQuery) (result.Page, error) {
	typeCond, err := filter.NewMatch(domidx.FieldRegionType, provinceTypes...)
	if err != nil {
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	hotelsCond, err := filter.Above(domidx.FieldHotelsNumber, 0)
	if err != nil {
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	expr, err := filter.All(typeCond, hotelsCond)
	if err != nil {
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if strings.TrimSpace(q.Name) == "" {
		return result.Page{}, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}
	req, err := newRequest(pick(q.Index, s.regionIndex), q.Name, expr, ProvinceLimit)
	if err != nil {
		return result.Page{}, err
	}
	req = req.WithWindow(provinceWindow)
	return s.lookup(ctx, opProvince, req, provider.CapLiveProvince,
		func(ctx context.Context) ([]document.Document, error) {
			return s.live.Provinces(ctx, req.Text(), q.Language, ProvinceLimit)
		},
		result.HotelsNumber,
	)
}

// GetHotel reads one document by id from the index.
func (s *Service) GetHotel(ctx context.Context, index, id string) (document.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return document.Document{}, fmt.Errorf("%w: id is required", domain.ErrInvalidRequest)
	}
	name := pick(index, s.hotelIndex)
	if !domidx.ValidName(name) {
		return document.Document{}, fmt.Errorf("%w: invalid index name %q", domain.ErrInvalidRequest, name)
	}
	doc, err := s.index.Get(ctx, name, id)
	if err != nil {
		return document.Document{}, fmt.Errorf("get %s/%s: %w", name, id, err)
	}
	return doc, nil
}

type liveFunc func(ctx context.Context) ([]document.Document, error)

// lookup asks the index first. A failed, missing or empty index answer goes
// to the live provider when it has the capability.
func (s *Service) lookup(
	ctx context.Context, op string, req request.Request, capability provider.Capability,
	live liveFunc, keys ...result.Key,
) (result.Page, error) {
	log := logger.FromContext(ctx).With(zap.String("op", op), zap.String("index", req.Index()))

	hits, indexErr := s.index.Search(ctx, req)
	reason := ""
	switch {
	case errors.Is(indexErr, db.ErrIndexNotFound):
		reason = reasonMissing
	case indexErr != nil:
		reason = reasonError
	case len(hits) == 0:
		reason = reasonEmpty
	}

	if reason == "" {
		return s.page(op, result.SourceIndex, result.Rank(hits, req.Limit(), keys...)), nil
	}
	if !s.fallback || !s.live.Capabilities().Has(capability) {
		return s.indexAnswer(op, indexErr)
	}

	metrics.QueryFallbackTotal.WithLabelValues(op, reason).Inc()
	log.Debug("falling back to live provider", zap.String("reason", reason), zap.Error(indexErr))

	docs, liveErr := live(ctx)
	switch {
	case liveErr == nil:
		out := make([]result.Hit, len(docs))
		for i := range docs {
			out[i] = result.Hit{Document: docs[i]}
		}
		return s.page(op, result.SourceLive, result.Rank(out, req.Limit(), keys...)), nil
	case errors.Is(liveErr, domain.ErrUnsupported):
		return s.indexAnswer(op, indexErr)
	case indexErr != nil:
		return result.Page{}, errors.Join(indexErr, liveErr)
	default:
		log.Warn("live lookup failed, serving empty index answer", zap.Error(liveErr))
		return s.page(op, result.SourceIndex, nil), nil
	}
}

// indexAnswer is the index side's own outcome: its error, or an empty page.
func (s *Service) indexAnswer(op string, indexErr error) (result.Page, error) {
	if indexErr != nil {
		return result.Page{}, indexErr
	}
	return s.page(op, result.SourceIndex, nil), nil
}

func (s *Service) page(op string, src result.Source, hits []result.Hit) result.Page {
	metrics.QueryRequestsTotal.WithLabelValues(op, string(src)).Inc()
	if hits == nil {
		hits = []result.Hit{}
	}
	return result.Page{Source: src, Results: hits}
}

func newRequest(index, text string, expr filter.Expression, limit int) (request.Request, error) {
	if !domidx.ValidName(index) {
		return request.Request{}, fmt.Errorf("%w: invalid index name %q", domain.ErrInvalidRequest, index)
	}
	req, err := request.New(index, text, expr, limit)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return req, nil
}

func pick(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fallback
}
