package sync

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/dump"
	"github.com/kailas-cloud/hoteldex/internal/provider"
	"github.com/kailas-cloud/hoteldex/internal/usecase/load"
)

// --- Mocks ---

type mockIndexRepo struct {
	mu        gosync.Mutex
	created   []string
	docs      map[string]document.Document
	upsertErr error
}

func newMockIndexRepo() *mockIndexRepo {
	return &mockIndexRepo{docs: map[string]document.Document{}}
}

func (m *mockIndexRepo) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.created {
		if c == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockIndexRepo) Create(_ context.Context, desc domidx.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, desc.Name)
	return nil
}

func (m *mockIndexRepo) Upsert(_ context.Context, _ string, docs []document.Document) ([]error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return make([]error, len(docs)), nil
}

func (m *mockIndexRepo) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.docs))
	for id := range m.docs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// memJobStore also holds the shared slots, like the Redis job repository.
type memJobStore struct {
	mu      gosync.Mutex
	snaps   map[string]job.Snapshot
	saves   []job.Status
	slots   map[string]string
	slotTTL map[string]time.Duration
	lockErr error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		snaps:   map[string]job.Snapshot{},
		slots:   map[string]string{},
		slotTTL: map[string]time.Duration{},
	}
}

func (s *memJobStore) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockErr != nil {
		return false, s.lockErr
	}
	if _, held := s.slots[key]; held {
		return false, nil
	}
	s.slots[key] = owner
	s.slotTTL[key] = ttl
	return true, nil
}

func (s *memJobStore) Release(_ context.Context, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots[key] == owner {
		delete(s.slots, key)
	}
	return nil
}

func (s *memJobStore) holder(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[key]
}

func (s *memJobStore) Save(_ context.Context, snap job.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.ID] = snap
	s.saves = append(s.saves, snap.Status)
	return nil
}

func (s *memJobStore) Get(_ context.Context, id string) (job.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return job.Snapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (s *memJobStore) List(_ context.Context, limit int) ([]job.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]job.Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memJobStore) statuses() []job.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]job.Status(nil), s.saves...)
}

type mockResolver struct {
	caps provider.Capabilities
	url  string
	err  error
	reqs []provider.DumpRequest
}

func (m *mockResolver) Name() string                         { return "mock" }
func (m *mockResolver) Capabilities() provider.Capabilities { return m.caps }

func (m *mockResolver) DumpURL(_ context.Context, req provider.DumpRequest) (string, error) {
	m.reqs = append(m.reqs, req)
	return m.url, m.err
}

// blockingRunner parks every job until release is closed.
type blockingRunner struct {
	started chan string
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan string, 8), release: make(chan struct{})}
}

func (b *blockingRunner) Run(ctx context.Context, j *job.Job) error {
	b.started <- j.ID()
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	for _, st := range []job.Status{job.StatusFetching, job.StatusDecompressing, job.StatusFiltering, job.StatusLoading} {
		if err := j.Advance(st, time.Now()); err != nil {
			return err
		}
	}
	return j.Complete(time.Now())
}

// --- Helpers ---

// sampleDump has 5 valid lines, 3 of them in IT.
var sampleDump = strings.Join([]string{
	`{"id":"it_1","name":"Hotel Roma","country":{"code":"IT"},"region":{"id":"100"},"stars":4,"rating":8.7}`,
	`{"id":"fr_1","name":"Hotel Paris","country":{"code":"FR"}}`,
	`{"id":"it_2","name":"Hotel Milano","country":{"code":"it"},"stars":3}`,
	`{"id":"de_1","name":"Hotel Berlin","country":{"code":"DE"}}`,
	`{"id":"it_3","name":"Hotel Napoli","country_code":"IT"}`,
}, "\n") + "\n"

func zstdPayload(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func serveDump(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	repo  *mockIndexRepo
	store *memJobStore
	root  string
	orch  *Orchestrator
}

func newFixture(t *testing.T, resolver DumpResolver) *fixture {
	t.Helper()
	f := &fixture{
		repo:  newMockIndexRepo(),
		store: newMemJobStore(),
		root:  t.TempDir(),
	}
	deps := Deps{
		Fetcher:      dump.NewFetcher(5*time.Second, 0),
		Decompressor: dump.NewDecompressor(0, 0),
		Filter:       dump.NewFilter(0),
		Loader:       load.New(f.repo).WithBatchSize(2),
		Store:        f.store,
	}
	if resolver != nil {
		deps.Resolver = resolver
	}
	f.orch = NewOrchestrator(deps, f.root)
	return f
}

func hotelJob(url string) *job.Job {
	return job.New("job-1", job.Spec{
		Source: "ratehawk", Kind: job.KindHotel, Index: "hotels_it", Country: "IT", URL: url,
	}, time.Now(), 0)
}

func assertWorkspaceGone(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("workspace root not empty: %v", names)
	}
}

func statusTrail(st []job.Status) string {
	parts := make([]string, len(st))
	for i, s := range st {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

var errBoom = errors.New("boom")

