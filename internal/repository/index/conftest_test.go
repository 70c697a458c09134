package index

import (
	"context"
	"testing"

	"github.com/kailas-cloud/hoteldex/internal/db"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn  func(ctx context.Context, name string) (bool, error)
	indexInfoFn    func(ctx context.Context, name string) (*db.IndexInfo, error)
	jsonSetMultiFn func(ctx context.Context, items []db.JSONSetItem) ([]error, error)
	jsonGetFn      func(ctx context.Context, key string, paths ...string) ([]byte, error)
	searchFn       func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)

	// docs backs the default JSON.SET / JSON.GET behaviour.
	docs map[string][]byte
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	if m.indexInfoFn != nil {
		return m.indexInfoFn(ctx, name)
	}
	return &db.IndexInfo{Name: name, NumDocs: int64(len(m.docs))}, nil
}

func (m *mockStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) ([]error, error) {
	if m.jsonSetMultiFn != nil {
		return m.jsonSetMultiFn(ctx, items)
	}
	for _, it := range items {
		m.docs[it.Key] = append([]byte(nil), it.Data...)
	}
	return make([]error, len(items)), nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	data, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	// root path replies wrap the document in an array
	return append(append([]byte("["), data...), ']'), nil
}

func (m *mockStore) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{docs: map[string][]byte{}}
	return New(ms, "hoteldex:"), ms
}

func ptr[T any](v T) *T { return &v }

func testHotel(id, name string) document.Document {
	return document.Document{
		ID:        id,
		Name:      name,
		NameExact: name,
		Country:   document.Country{Name: "Italy", Code: "IT"},
		Region:    &document.Region{ID: "2734", Name: "Rome"},
		Stars:     ptr(4.0),
		Rating:    ptr(8.7),
		Location:  "12.4964,41.9028",
	}
}
