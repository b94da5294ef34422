package errmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
	obs.matched(0.5)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, statusOK},
		{fmt.Errorf("text: %w", ErrEmptyInput), statusRejected},
		{ErrNoLabels, statusRejected},
		{ErrDatabaseNotConfigured, statusRejected},
		{fmt.Errorf("entry [0]: %w", ErrInvalidCatalog), statusRejected},
		{ErrStoreUnavailable, statusError},
		{errors.New("boom"), statusError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("match", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("match", time.Now(), ErrEmptyInput)
	obs.observe("match", time.Now(), errors.New("fail"))
	obs.matched(0.9)

	for _, status := range []string{statusOK, statusRejected, statusError} {
		if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("match", status)); got != 1 {
			t.Errorf("operations{status=%s} = %v, want 1", status, got)
		}
	}
	if n := testutil.CollectAndCount(obs.metrics.similarity); n != 1 {
		t.Errorf("similarity series = %d, want 1", n)
	}
}

func TestObserver_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("second observer did not reuse the registered collector")
	}
}

func TestClient_ObservesOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newMemoryClient(t, WithPrometheus(reg), WithLogger(slog.Default()))

	_, _, _ = c.FindBestMatch(context.Background(), "")
	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("match", statusRejected)); got != 1 {
		t.Errorf("rejected matches = %v, want 1", got)
	}
}
