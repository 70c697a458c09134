package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/hoteldex/internal/db"
)

// JSONSetMulti stores many documents in one DoMulti round-trip. Error replies
// are collected per item; the first transport failure aborts the call.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) ([]error, error) {
	if len(items) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		path := item.Path
		if path == "" {
			path = "$"
		}
		cmds[i] = s.b().Arbitrary("JSON.SET").Keys(item.Key).Args(path, string(item.Data)).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	rejected := make([]error, len(items))
	for i, res := range results {
		err := res.Error()
		if err == nil {
			continue
		}
		if !isRejection(err) {
			return nil, &db.Error{Op: db.OpJSONSet, Err: err}
		}
		rejected[i] = &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
	}
	return rejected, nil
}

// JSONGet retrieves a JSON document by key and optional paths.
func (s *Store) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	args := make([]string, len(paths))
	copy(args, paths)

	cmd := s.b().Arbitrary("JSON.GET").Keys(key).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}
