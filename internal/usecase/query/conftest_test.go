package query

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/kailas-cloud/hoteldex/internal/db"
	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/request"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
	"github.com/kailas-cloud/hoteldex/internal/provider"
)

// --- Mocks ---

type mockIndex struct {
	searchFn func(ctx context.Context, req request.Request) ([]result.Hit, error)
	getFn    func(ctx context.Context, name, id string) (document.Document, error)
	reqs     []request.Request
}

func (m *mockIndex) Search(ctx context.Context, req request.Request) ([]result.Hit, error) {
	m.reqs = append(m.reqs, req)
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return nil, nil
}

func (m *mockIndex) Get(ctx context.Context, name, id string) (document.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, name, id)
	}
	return document.Document{}, domain.ErrNotFound
}

type mockLive struct {
	caps       provider.Capabilities
	byNameFn   func(name, lang string, limit int) ([]document.Document, error)
	byRegionFn func(regionID string, limit int) ([]document.Document, error)
	provFn     func(name, lang string, limit int) ([]document.Document, error)
	calls      []string
}

func (m *mockLive) Name() string                         { return "mock" }
func (m *mockLive) Capabilities() provider.Capabilities { return m.caps }

func (m *mockLive) HotelsByName(_ context.Context, name, lang string, limit int) ([]document.Document, error) {
	m.calls = append(m.calls, "name:"+name)
	if m.byNameFn == nil {
		return nil, provider.Unsupported("mock", provider.CapLiveHotelName)
	}
	return m.byNameFn(name, lang, limit)
}

func (m *mockLive) HotelsByRegion(_ context.Context, regionID string, limit int) ([]document.Document, error) {
	m.calls = append(m.calls, "region:"+regionID)
	if m.byRegionFn == nil {
		return nil, provider.Unsupported("mock", provider.CapLiveRegion)
	}
	return m.byRegionFn(regionID, limit)
}

func (m *mockLive) Provinces(_ context.Context, name, lang string, limit int) ([]document.Document, error) {
	m.calls = append(m.calls, "province:"+name)
	if m.provFn == nil {
		return nil, provider.Unsupported("mock", provider.CapLiveProvince)
	}
	return m.provFn(name, lang, limit)
}

func allCaps() provider.Capabilities {
	return provider.Capabilities{
		provider.CapLiveHotelName: true,
		provider.CapLiveRegion:    true,
		provider.CapLiveProvince:  true,
	}
}

// memJSONStore is a JSON key space for the index repository. Search returns
// every document under the index prefix whose name contains the first term,
// in key order or by the numeric SortBy field, truncated to the limit.
type memJSONStore struct {
	docs map[string][]byte
}

func newMemJSONStore() *memJSONStore { return &memJSONStore{docs: map[string][]byte{}} }

func (m *memJSONStore) CreateIndex(context.Context, *db.IndexDefinition) error { return nil }

func (m *memJSONStore) IndexExists(context.Context, string) (bool, error) { return true, nil }

func (m *memJSONStore) IndexInfo(_ context.Context, name string) (*db.IndexInfo, error) {
	return &db.IndexInfo{Name: name, NumDocs: int64(len(m.docs))}, nil
}

func (m *memJSONStore) JSONSetMulti(_ context.Context, items []db.JSONSetItem) ([]error, error) {
	for _, it := range items {
		m.docs[it.Key] = append([]byte(nil), it.Data...)
	}
	return make([]error, len(items)), nil
}

func (m *memJSONStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	d, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte("[" + string(d) + "]"), nil
}

func (m *memJSONStore) Search(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	prefix := strings.TrimSuffix(q.IndexName, "idx")
	keys := make([]string, 0, len(m.docs))
	for key, d := range m.docs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if len(q.Terms) > 0 && !strings.Contains(strings.ToLower(string(d)), q.Terms[0]) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if q.SortBy != "" {
		sort.SliceStable(keys, func(i, j int) bool {
			a, b := m.number(keys[i], q.SortBy), m.number(keys[j], q.SortBy)
			if q.SortDesc {
				return a > b
			}
			return a < b
		})
	}

	out := &db.SearchResult{Total: len(keys)}
	for _, key := range keys[:min(len(keys), q.Limit)] {
		out.Entries = append(out.Entries, db.SearchEntry{Key: key, Score: 1, Fields: map[string]string{"$": string(m.docs[key])}})
	}
	return out, nil
}

func (m *memJSONStore) number(key, field string) float64 {
	var doc map[string]any
	if err := json.Unmarshal(m.docs[key], &doc); err != nil {
		return 0
	}
	v, _ := doc[field].(float64)
	return v
}

func ptr[T any](v T) *T { return &v }

func hit(id string, score float64, rating, stars float64) result.Hit {
	return result.Hit{
		Document: document.Document{ID: id, Name: id, Rating: ptr(rating), Stars: ptr(stars)},
		Score:    score,
	}
}

func ids(p result.Page) string {
	out := make([]string, len(p.Results))
	for i, h := range p.Results {
		out[i] = h.ID
	}
	return strings.Join(out, ",")
}
