package hoteldex

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func TestObserver_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatal(err)
	}

	obs.observe("sync.run", time.Now(), nil)
	obs.observe("sync.run", time.Now(), errTest)
	obs.observe("sync.run", time.Now(), errTest)

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("sync.run", "ok")); got != 1 {
		t.Errorf("ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("sync.run", "error")); got != 2 {
		t.Errorf("error = %v, want 2", got)
	}
}

func TestObserver_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("second client must reuse the registered counter")
	}
}

func TestObserver_LogsFailures(t *testing.T) {
	core, logs := zapobserver.New(zap.DebugLevel)
	obs, err := newObserver(zap.New(core), nil)
	if err != nil {
		t.Fatal(err)
	}

	obs.observe("lookup.provinces", time.Now(), errTest)
	obs.observe("lookup.provinces", time.Now(), nil)

	if n := logs.FilterMessage("operation failed").Len(); n != 1 {
		t.Errorf("failed entries = %d, want 1", n)
	}
	if n := logs.FilterMessage("operation completed").Len(); n != 1 {
		t.Errorf("completed entries = %d, want 1", n)
	}
}

func TestObserver_NilIsNoop(t *testing.T) {
	var obs *observer
	obs.observe("ping", time.Now(), errTest)
}
