// Package index stores search documents as JSON under an FT index and reads
// them back by id or by a scored text query.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/hoteldex/internal/db"
	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/request"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
)

// PhraseWeight boosts a full-phrase match over single-term matches.
const PhraseWeight = 2.0

// store is the consumer interface for the index repository (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error)
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) ([]error, error)
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements the index side of usecase/load and usecase/query.
type Repo struct {
	store  store
	prefix string
}

// New creates an index repository. prefix namespaces every key and index.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Exists reports whether the FT index for name exists.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, indexName(r.prefix, name))
	if err != nil {
		return false, fmt.Errorf("%w: index exists %s: %w", domain.ErrIndex, name, err)
	}
	return ok, nil
}

// Create issues FT.CREATE for the descriptor. A concurrent creator winning
// the race is not an error.
func (r *Repo) Create(ctx context.Context, desc domidx.Descriptor) error {
	def, err := buildIndex(r.prefix, desc)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("%w: create index %s: %w", domain.ErrIndex, desc.Name, err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context, name string) (int64, error) {
	info, err := r.store.IndexInfo(ctx, indexName(r.prefix, name))
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, fmt.Errorf("index %s: %w", name, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("%w: index info %s: %w", domain.ErrIndex, name, err)
	}
	return info.NumDocs, nil
}

// Upsert writes docs in one pipelined round trip, keyed by document id so a
// reload overwrites rather than duplicates. The returned slice is aligned with
// docs and holds the per-document rejection, if any. A transport failure
// aborts the batch and wraps domain.ErrIndex.
func (r *Repo) Upsert(ctx context.Context, name string, docs []document.Document) ([]error, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	items := make([]db.JSONSetItem, 0, len(docs))
	pos := make([]int, 0, len(docs))
	rejected := make([]error, len(docs))
	for i := range docs {
		data, err := json.Marshal(&docs[i])
		if err != nil {
			rejected[i] = fmt.Errorf("marshal %s: %w", docs[i].ID, err)
			continue
		}
		items = append(items, db.JSONSetItem{Key: docKey(r.prefix, name, docs[i].ID), Path: "$", Data: data})
		pos = append(pos, i)
	}

	errs, err := r.store.JSONSetMulti(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert into %s: %w", domain.ErrIndex, name, err)
	}
	for j, e := range errs {
		if e != nil {
			rejected[pos[j]] = e
		}
	}
	return rejected, nil
}

// Get returns one document by id.
func (r *Repo) Get(ctx context.Context, name, id string) (document.Document, error) {
	key := docKey(r.prefix, name, id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return document.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return document.Document{}, fmt.Errorf("%w: json.get %s: %w", domain.ErrIndex, key, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return document.Document{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}

// Search runs a name query (phrase-boosted, fuzzy for long terms) restricted
// by the filters. It returns up to req.Window() candidates, in SortBy order
// when one is set. A missing index surfaces as db.ErrIndexNotFound.
func (r *Repo) Search(ctx context.Context, req request.Request) ([]result.Hit, error) {
	sr, err := r.store.Search(ctx, &db.TextQuery{
		IndexName:    indexName(r.prefix, req.Index()),
		Field:        domidx.FieldName,
		Terms:        req.Terms(),
		PhraseWeight: PhraseWeight,
		Fuzzy:        true,
		Filters:      req.Filters(),
		Limit:        req.Window(),
		SortBy:       req.SortBy(),
		SortDesc:     req.SortDesc(),
		ReturnFields: []string{"$"},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("search %s: %w", req.Index(), err)
		}
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrIndex, req.Index(), err)
	}
	return parseHits(sr, docPrefix(r.prefix, req.Index())), nil
}

// parseHits converts search entries into hits. Entries whose payload does not
// decode keep their key-derived id so the caller still sees the match.
func parseHits(sr *db.SearchResult, keyPrefix string) []result.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		doc, err := decodeDocument([]byte(e.Fields["$"]))
		if err != nil || doc.ID == "" {
			doc.ID = strings.TrimPrefix(e.Key, keyPrefix)
		}
		hits = append(hits, result.Hit{Document: doc, Score: e.Score})
	}
	return hits
}

// decodeDocument accepts both the bare object and the single-element array
// JSON.GET returns for the root path.
func decodeDocument(raw []byte) (document.Document, error) {
	var doc document.Document
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var docs []document.Document
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return doc, fmt.Errorf("unmarshal: %w", err)
		}
		if len(docs) == 0 {
			return doc, domain.ErrNotFound
		}
		return docs[0], nil
	}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return doc, fmt.Errorf("unmarshal: %w", err)
	}
	return doc, nil
}
