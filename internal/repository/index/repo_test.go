package index

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/hoteldex/internal/db"
	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/filter"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/request"
)

// --- schema ---

func TestBuildIndex_Hotel(t *testing.T) {
	desc, err := domidx.For(job.KindHotel, "hotels_it")
	if err != nil {
		t.Fatal(err)
	}
	def, err := buildIndex("hoteldex:", desc)
	if err != nil {
		t.Fatalf("buildIndex: %v", err)
	}

	if def.Name != "hoteldex:hotels_it:idx" {
		t.Errorf("Name = %q", def.Name)
	}
	if def.StorageType != db.StorageJSON {
		t.Errorf("StorageType = %q", def.StorageType)
	}
	if !reflect.DeepEqual(def.Prefixes, []string{"hoteldex:hotels_it:"}) {
		t.Errorf("Prefixes = %v", def.Prefixes)
	}

	byAlias := map[string]db.IndexField{}
	for _, f := range def.Fields {
		byAlias[f.Alias] = f
	}
	checks := []struct {
		alias string
		path  string
		typ   db.IndexFieldType
	}{
		{"id", "$.id", db.IndexFieldTag},
		{"name", "$.name", db.IndexFieldText},
		{"name_exact", "$.name_exact", db.IndexFieldTag},
		{"country_code", "$.country.code", db.IndexFieldTag},
		{"region_id", "$.region.id", db.IndexFieldTag},
		{"stars", "$.stars", db.IndexFieldNumeric},
		{"rating", "$.rating", db.IndexFieldNumeric},
		{"location", "$.location", db.IndexFieldGeo},
	}
	for _, c := range checks {
		f, ok := byAlias[c.alias]
		if !ok {
			t.Errorf("missing field %s", c.alias)
			continue
		}
		if f.Name != c.path || f.Type != c.typ {
			t.Errorf("%s = %+v", c.alias, f)
		}
	}
	if !byAlias["rating"].Sortable || !byAlias["stars"].Sortable {
		t.Error("stars and rating must be sortable")
	}
	if byAlias["name_exact"].TagSeparator != "|" {
		t.Errorf("name_exact separator = %q", byAlias["name_exact"].TagSeparator)
	}
}

func TestBuildIndex_Region(t *testing.T) {
	desc, err := domidx.For(job.KindRegion, "regions")
	if err != nil {
		t.Fatal(err)
	}
	def, err := buildIndex("p:", desc)
	if err != nil {
		t.Fatal(err)
	}
	var sawType, sawHotels bool
	for _, f := range def.Fields {
		switch f.Alias {
		case "type":
			sawType = f.Type == db.IndexFieldTag
		case "hotels_number":
			sawHotels = f.Type == db.IndexFieldNumeric && f.Sortable
		case "stars", "rating", "region_id":
			t.Errorf("region schema must not carry %s", f.Alias)
		}
	}
	if !sawType || !sawHotels {
		t.Errorf("type=%v hotels_number=%v", sawType, sawHotels)
	}
}

func TestBuildIndex_UnknownType(t *testing.T) {
	desc := domidx.Descriptor{Name: "x", Fields: []domidx.Field{{Path: "$.a", Name: "a", Type: "blob"}}}
	if _, err := buildIndex("p:", desc); err == nil {
		t.Fatal("expected error")
	}
}

// --- Create / Exists / Count ---

func TestCreate_ExistsIsSuccess(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error { return db.ErrIndexExists }

	desc, _ := domidx.For(job.KindHotel, "hotels")
	if err := repo.Create(context.Background(), desc); err != nil {
		t.Fatalf("concurrent create must be success, got %v", err)
	}
}

func TestCreate_Failure(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return &db.Error{Op: db.OpCreateIndex, Err: errors.New("dial tcp: refused")}
	}

	desc, _ := domidx.For(job.KindHotel, "hotels")
	if err := repo.Create(context.Background(), desc); !errors.Is(err, domain.ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		if name != "hoteldex:hotels:idx" {
			t.Errorf("name = %q", name)
		}
		return true, nil
	}
	ok, err := repo.Exists(context.Background(), "hotels")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}

	ms.indexExistsFn = func(context.Context, string) (bool, error) { return false, errors.New("timeout") }
	if _, err := repo.Exists(context.Background(), "hotels"); !errors.Is(err, domain.ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

func TestCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexInfoFn = func(_ context.Context, _ string) (*db.IndexInfo, error) {
		return &db.IndexInfo{NumDocs: 42}, nil
	}
	n, err := repo.Count(context.Background(), "hotels")
	if err != nil || n != 42 {
		t.Fatalf("n=%d err=%v", n, err)
	}

	ms.indexInfoFn = func(context.Context, string) (*db.IndexInfo, error) { return nil, db.ErrIndexNotFound }
	if _, err := repo.Count(context.Background(), "hotels"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- Upsert / Get ---

func TestUpsert_KeysAndRoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	doc := testHotel("h-1", "Grand Hotel")

	var keys []string
	ms.jsonSetMultiFn = func(_ context.Context, items []db.JSONSetItem) ([]error, error) {
		for _, it := range items {
			if it.Path != "$" {
				t.Errorf("path = %q", it.Path)
			}
			keys = append(keys, it.Key)
			ms.docs[it.Key] = it.Data
		}
		return make([]error, len(items)), nil
	}

	rejected, err := repo.Upsert(ctx, "hotels_it", []document.Document{doc})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if rejected[0] != nil {
		t.Fatalf("unexpected rejection: %v", rejected[0])
	}
	if !reflect.DeepEqual(keys, []string{"hoteldex:hotels_it:h-1"}) {
		t.Errorf("keys = %v", keys)
	}

	got, err := repo.Get(ctx, "hotels_it", "h-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("round trip:\n got %+v\nwant %+v", got, doc)
	}
}

func TestUpsert_SameIDOverwrites(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	first := testHotel("h-1", "Old Name")
	second := testHotel("h-1", "New Name")
	if _, err := repo.Upsert(ctx, "hotels", []document.Document{first}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Upsert(ctx, "hotels", []document.Document{second}); err != nil {
		t.Fatal(err)
	}

	if len(ms.docs) != 1 {
		t.Fatalf("expected one stored document, got %d", len(ms.docs))
	}
	got, err := repo.Get(ctx, "hotels", "h-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "New Name" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestUpsert_RejectionsAligned(t *testing.T) {
	repo, ms := newTestRepo(t)
	reject := errors.New("ERR wrong type")
	ms.jsonSetMultiFn = func(_ context.Context, items []db.JSONSetItem) ([]error, error) {
		out := make([]error, len(items))
		out[1] = reject
		return out, nil
	}

	docs := []document.Document{testHotel("a", "A"), testHotel("b", "B"), testHotel("c", "C")}
	rejected, err := repo.Upsert(context.Background(), "hotels", docs)
	if err != nil {
		t.Fatal(err)
	}
	if rejected[0] != nil || rejected[2] != nil || !errors.Is(rejected[1], reject) {
		t.Errorf("rejected = %v", rejected)
	}
}

func TestUpsert_TransportFailure(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonSetMultiFn = func(context.Context, []db.JSONSetItem) ([]error, error) {
		return nil, &db.Error{Op: db.OpJSONSet, Err: errors.New("connection reset")}
	}

	_, err := repo.Upsert(context.Background(), "hotels", []document.Document{testHotel("a", "A")})
	if !errors.Is(err, domain.ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

func TestUpsert_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonSetMultiFn = func(context.Context, []db.JSONSetItem) ([]error, error) {
		t.Fatal("store must not be called")
		return nil, nil
	}
	rejected, err := repo.Upsert(context.Background(), "hotels", nil)
	if err != nil || rejected != nil {
		t.Fatalf("rejected=%v err=%v", rejected, err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), "hotels", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonGetFn = func(context.Context, string, ...string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpJSONGet, Err: errors.New("i/o timeout")}
	}
	_, err := repo.Get(context.Background(), "hotels", "x")
	if !errors.Is(err, domain.ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

// --- Search ---

func TestSearch_BuildsQueryAndParsesHits(t *testing.T) {
	repo, ms := newTestRepo(t)
	cond, err := filter.NewMatch("region_id", "2734")
	if err != nil {
		t.Fatal(err)
	}
	expr, err := filter.All(cond)
	if err != nil {
		t.Fatal(err)
	}

	ms.searchFn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.IndexName != "hoteldex:hotels:idx" {
			t.Errorf("IndexName = %q", q.IndexName)
		}
		if q.Field != "name" || !q.Fuzzy || q.PhraseWeight != PhraseWeight {
			t.Errorf("query = %+v", q)
		}
		if !reflect.DeepEqual(q.Terms, []string{"grand", "hotel"}) || q.Limit != 10 {
			t.Errorf("terms=%v limit=%d", q.Terms, q.Limit)
		}
		if q.SortBy != "" {
			t.Errorf("SortBy = %q, want score order", q.SortBy)
		}
		if !reflect.DeepEqual(q.ReturnFields, []string{"$"}) {
			t.Errorf("ReturnFields = %v", q.ReturnFields)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "hoteldex:hotels:h-1", Score: 3.5, Fields: map[string]string{
					"$": `{"id":"h-1","name":"Grand Hotel","name_exact":"grand hotel","country":{"code":"IT"},"rating":9.1}`,
				}},
				{Key: "hoteldex:hotels:h-2", Score: 1.2, Fields: map[string]string{"$": "not json"}},
			},
		}, nil
	}

	req, err := request.New("hotels", "Grand Hotel", expr, 10)
	if err != nil {
		t.Fatal(err)
	}
	hits, err := repo.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len = %d", len(hits))
	}
	if hits[0].ID != "h-1" || hits[0].Name != "Grand Hotel" || hits[0].Score != 3.5 || *hits[0].Rating != 9.1 {
		t.Errorf("hit[0] = %+v", hits[0])
	}
	if hits[1].ID != "h-2" {
		t.Errorf("undecodable hit keeps key id, got %q", hits[1].ID)
	}
}

func TestSearch_SortAndWindow(t *testing.T) {
	repo, ms := newTestRepo(t)
	cond, err := filter.NewMatch(domidx.FieldRegionID, "7")
	if err != nil {
		t.Fatal(err)
	}
	expr, err := filter.All(cond)
	if err != nil {
		t.Fatal(err)
	}
	req, err := request.New("hotels", "", expr, 50)
	if err != nil {
		t.Fatal(err)
	}

	var got *db.TextQuery
	ms.searchFn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}
	if _, err := repo.Search(context.Background(), req.WithSort(domidx.FieldRating, true).WithWindow(200)); err != nil {
		t.Fatal(err)
	}
	if got.SortBy != "rating" || !got.SortDesc || got.Limit != 200 {
		t.Errorf("sort=%q desc=%v limit=%d", got.SortBy, got.SortDesc, got.Limit)
	}
}

func TestSearch_Errors(t *testing.T) {
	repo, ms := newTestRepo(t)
	req, err := request.New("hotels", "rome", filter.Expression{}, 10)
	if err != nil {
		t.Fatal(err)
	}

	ms.searchFn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) { return nil, db.ErrIndexNotFound }
	_, err = repo.Search(context.Background(), req)
	if !errors.Is(err, db.ErrIndexNotFound) || errors.Is(err, domain.ErrIndex) {
		t.Errorf("missing index: %v", err)
	}

	ms.searchFn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("closed")}
	}
	_, err = repo.Search(context.Background(), req)
	if !errors.Is(err, domain.ErrIndex) {
		t.Errorf("transport: %v", err)
	}
}

func TestDecodeDocument(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantID  string
		wantErr bool
	}{
		{"object", `{"id":"a","name":"A"}`, "a", false},
		{"array", `[{"id":"b","name":"B"}]`, "b", false},
		{"empty array", `[]`, "", true},
		{"garbage", `{`, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := decodeDocument([]byte(tc.raw))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v", err)
			}
			if doc.ID != tc.wantID {
				t.Errorf("ID = %q", doc.ID)
			}
		})
	}
}
