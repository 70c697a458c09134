package job

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/kailas-cloud/hoteldex/internal/db"
	domjob "github.com/kailas-cloud/hoteldex/internal/domain/job"
)

// memStore is an in-memory hash/KV store; fn fields override single calls.
type memStore struct {
	hashes  map[string]map[string]string
	values  map[string][]byte
	ttls    map[string]time.Duration
	hsetFn  func(ctx context.Context, key string, fields map[string]string) error
	scanFn  func(ctx context.Context, pattern string) ([]string, error)
	multiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
}

func newMemStore() *memStore {
	return &memStore{
		hashes: map[string]map[string]string{},
		values: map[string][]byte{},
		ttls:   map[string]time.Duration{},
	}
}

func (m *memStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.multiFn != nil {
		return m.multiFn(ctx, keys)
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = m.HGetAll(ctx, k)
	}
	return out, nil
}

func (m *memStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Expire(_ context.Context, key string, ttl time.Duration, _ bool) error {
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if _, held := m.values[key]; held {
		return false, nil
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memStore) DeleteIfEqual(_ context.Context, key string, value []byte) (bool, error) {
	if string(m.values[key]) != string(value) {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms, "hoteldex:", time.Hour), ms
}

func testSnapshot(id string, created time.Time) domjob.Snapshot {
	j := domjob.New(id, domjob.Spec{
		Source: "ratehawk", Kind: domjob.KindHotel, Index: "hotels_it", Country: "IT",
	}, created, 0)
	return j.Snapshot()
}
