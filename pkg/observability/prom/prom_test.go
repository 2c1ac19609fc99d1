package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	kerrors "github.com/matzehuels/kdag/pkg/errors"
)

func TestRectOutcomes(t *testing.T) {
	h := New(prometheus.NewRegistry())

	h.OnRectReported("n1", true)
	h.OnRectReported("n1", false)
	h.OnRectReported("n1", false)

	if got := testutil.ToFloat64(h.rects.WithLabelValues("updated")); got != 1 {
		t.Errorf("updated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.rects.WithLabelValues("debounced")); got != 2 {
		t.Errorf("debounced = %v, want 2", got)
	}
}

func TestRouteComplete(t *testing.T) {
	h := New(prometheus.NewRegistry())

	h.OnRouteComplete(5, 2, time.Millisecond)
	h.OnRouteComplete(3, 0, time.Millisecond)

	if got := testutil.ToFloat64(h.routePasses); got != 2 {
		t.Errorf("passes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.routeEdges.WithLabelValues("rendered")); got != 8 {
		t.Errorf("rendered = %v, want 8", got)
	}
	if got := testutil.ToFloat64(h.routeEdges.WithLabelValues("dropped")); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}
}

func TestLoadResultLabels(t *testing.T) {
	h := New(prometheus.NewRegistry())
	ctx := context.Background()

	h.OnLoadComplete(ctx, "p1", time.Millisecond, nil)
	h.OnLoadComplete(ctx, "p1", time.Millisecond, kerrors.New(kerrors.ErrCodeStaleResponse, "stale"))
	h.OnLoadComplete(ctx, "p1", time.Millisecond, errors.New("boom"))

	tests := []struct {
		label string
		want  float64
	}{
		{"ok", 1},
		{"STALE_RESPONSE", 1},
		{"error", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(h.loads.WithLabelValues(tt.label)); got != tt.want {
			t.Errorf("loads{result=%q} = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestHTTPStatusLabels(t *testing.T) {
	h := New(prometheus.NewRegistry())
	ctx := context.Background()

	h.OnResponse(ctx, "GET", "localhost", "/projects", 200, time.Millisecond)
	h.OnError(ctx, "GET", "localhost", "/projects", errors.New("refused"))

	if got := testutil.ToFloat64(h.requests.WithLabelValues("GET", "200")); got != 1 {
		t.Errorf("GET 200 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.requests.WithLabelValues("GET", "error")); got != 1 {
		t.Errorf("GET error = %v, want 1", got)
	}
}
