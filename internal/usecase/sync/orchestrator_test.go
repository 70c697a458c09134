package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/provider"
)

func TestRun_EndToEnd(t *testing.T) {
	srv := serveDump(t, zstdPayload(t, sampleDump))
	f := newFixture(t, nil)
	j := hotelJob(srv.URL + "/dump.jsonl.zst")

	if err := f.orch.Run(context.Background(), j); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := j.Snapshot()
	if snap.Status != job.StatusDone {
		t.Fatalf("status = %s (%s)", snap.Status, snap.Error)
	}
	want := job.Counts{TotalSeen: 5, Matched: 3, Loaded: 3}
	if snap.Counts != want {
		t.Errorf("counts = %+v, want %+v", snap.Counts, want)
	}
	if got := strings.Join(f.repo.ids(), ","); got != "it_1,it_2,it_3" {
		t.Errorf("indexed ids = %s", got)
	}
	if len(f.repo.created) != 1 || f.repo.created[0] != "hotels_it" {
		t.Errorf("created = %v", f.repo.created)
	}
	if got := statusTrail(f.store.statuses()); got != "FETCHING,DECOMPRESSING,FILTERING,LOADING,DONE" {
		t.Errorf("persisted trail = %s", got)
	}
	if snap.FinishedAt == nil || snap.StartedAt == nil {
		t.Errorf("timestamps missing: %+v", snap)
	}
	assertWorkspaceGone(t, f.root)
}

func TestRun_Rerun_IsIdempotent(t *testing.T) {
	srv := serveDump(t, zstdPayload(t, sampleDump))
	f := newFixture(t, nil)

	for i := 0; i < 2; i++ {
		j := hotelJob(srv.URL)
		if err := f.orch.Run(context.Background(), j); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if n := len(f.repo.ids()); n != 3 {
		t.Errorf("index holds %d docs, want 3", n)
	}
	if len(f.repo.created) != 1 {
		t.Errorf("index created %d times", len(f.repo.created))
	}
}

func TestRun_MalformedLinesDoNotFail(t *testing.T) {
	dumpText := sampleDump + "{not json\n" + `{"id":"it_4","country":{"code":"IT"}}` + "\n"
	srv := serveDump(t, zstdPayload(t, dumpText))
	f := newFixture(t, nil)
	j := hotelJob(srv.URL)

	if err := f.orch.Run(context.Background(), j); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := j.Snapshot()
	if snap.Status != job.StatusDone {
		t.Fatalf("status = %s", snap.Status)
	}
	want := job.Counts{TotalSeen: 7, Matched: 4, SkippedMalformed: 1, Loaded: 3, LoadErrors: 1}
	if snap.Counts != want {
		t.Errorf("counts = %+v, want %+v", snap.Counts, want)
	}
	if len(snap.Samples) != 1 || !strings.Contains(snap.Samples[0], "it_4") {
		t.Errorf("samples = %q", snap.Samples)
	}
}

func TestRun_EmptyDump(t *testing.T) {
	srv := serveDump(t, zstdPayload(t, ""))
	f := newFixture(t, nil)
	j := hotelJob(srv.URL)

	if err := f.orch.Run(context.Background(), j); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := j.Snapshot()
	if snap.Status != job.StatusDone || snap.Counts != (job.Counts{}) {
		t.Errorf("snap = %+v", snap)
	}
	if len(f.repo.created) != 1 {
		t.Error("index must exist even for an empty dump")
	}
}

func TestRun_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "expired link", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	f := newFixture(t, nil)
	j := hotelJob(srv.URL)

	err := f.orch.Run(context.Background(), j)
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var se *domain.StageError
	if !errors.As(err, &se) || se.Stage != domain.StageFetch {
		t.Errorf("stage error = %#v", se)
	}
	snap := j.Snapshot()
	if snap.Status != job.StatusFailed || snap.ErrorStage != string(domain.StageFetch) {
		t.Errorf("snap = %+v", snap)
	}
	if !strings.Contains(snap.Error, "403") {
		t.Errorf("error = %q", snap.Error)
	}
	if len(f.repo.created) != 0 {
		t.Error("index must not be touched after a failed fetch")
	}
	if trail := f.store.statuses(); trail[len(trail)-1] != job.StatusFailed {
		t.Errorf("final persisted status = %s", trail[len(trail)-1])
	}
	assertWorkspaceGone(t, f.root)
}

func TestRun_CorruptArchive(t *testing.T) {
	payload := zstdPayload(t, sampleDump)
	srv := serveDump(t, payload[:len(payload)/2])
	f := newFixture(t, nil)
	j := hotelJob(srv.URL)

	err := f.orch.Run(context.Background(), j)
	if !errors.Is(err, domain.ErrDecompress) {
		t.Fatalf("expected ErrDecompress, got %v", err)
	}
	if j.Snapshot().ErrorStage != string(domain.StageDecompress) {
		t.Errorf("stage = %s", j.Snapshot().ErrorStage)
	}
	assertWorkspaceGone(t, f.root)
}

func TestRun_IndexUnavailable(t *testing.T) {
	srv := serveDump(t, zstdPayload(t, sampleDump))
	f := newFixture(t, nil)
	f.repo.upsertErr = errors.Join(domain.ErrIndex, errBoom)
	j := hotelJob(srv.URL)

	err := f.orch.Run(context.Background(), j)
	if !errors.Is(err, domain.ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
	snap := j.Snapshot()
	if snap.Status != job.StatusFailed || snap.ErrorStage != string(domain.StageLoad) {
		t.Errorf("snap = %+v", snap)
	}
	if snap.Counts.Matched != 3 {
		t.Errorf("filter counts lost: %+v", snap.Counts)
	}
}

func TestRun_ResolvesURLThroughProvider(t *testing.T) {
	srv := serveDump(t, zstdPayload(t, sampleDump))
	res := &mockResolver{
		caps: provider.Capabilities{provider.CapHotelDump: true},
		url:  srv.URL + "/signed?X-Amz-Signature=deadbeef&X-Amz-Credential=AKIA",
	}
	f := newFixture(t, res)
	j := job.New("job-2", job.Spec{
		Source: "ratehawk", Kind: job.KindHotel, Index: "hotels_it", Country: "IT", Language: "it",
	}, time.Now(), 0)

	if err := f.orch.Run(context.Background(), j); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.reqs) != 1 || res.reqs[0].Country != "IT" || res.reqs[0].Language != "it" {
		t.Errorf("resolver requests = %+v", res.reqs)
	}
	if j.Spec().URL != res.url {
		t.Errorf("resolved url not recorded: %q", j.Spec().URL)
	}
	// the snapshot is persisted and served, so the signature stays out of it
	if got := j.Snapshot().Spec.URL; got != srv.URL+"/signed" {
		t.Errorf("snapshot url = %q", got)
	}
	saved := f.store.snaps["job-2"]
	if strings.Contains(saved.Spec.URL, "deadbeef") {
		t.Errorf("persisted url = %q", saved.Spec.URL)
	}
}

func TestRun_ResolverLacksCapability(t *testing.T) {
	res := &mockResolver{caps: provider.Capabilities{provider.CapRegionDump: true}}
	f := newFixture(t, res)
	j := hotelJob("")

	err := f.orch.Run(context.Background(), j)
	if !errors.Is(err, domain.ErrUnsupported) || !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected unsupported fetch error, got %v", err)
	}
	if len(res.reqs) != 0 {
		t.Error("resolver must not be called without the capability")
	}
}

func TestRun_NoURLNoResolver(t *testing.T) {
	f := newFixture(t, nil)
	err := f.orch.Run(context.Background(), hotelJob(""))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	srv := serveDump(t, zstdPayload(t, sampleDump))
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := hotelJob(srv.URL)

	if err := f.orch.Run(ctx, j); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if j.Status() != job.StatusFailed {
		t.Errorf("status = %s", j.Status())
	}
	// The final state is persisted even though ctx is dead.
	if trail := f.store.statuses(); trail[len(trail)-1] != job.StatusFailed {
		t.Errorf("trail = %v", trail)
	}
	assertWorkspaceGone(t, f.root)
}
