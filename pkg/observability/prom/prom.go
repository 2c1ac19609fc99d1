// Package prom implements the observability hook interfaces with Prometheus
// collectors.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	kerrors "github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/observability"
)

const namespace = "kdag"

// Hooks records layout, routing, gateway and HTTP events as Prometheus metrics.
// A single value satisfies every hook interface in the observability package.
type Hooks struct {
	rects       *prometheus.CounterVec
	viewports   prometheus.Counter
	routePasses prometheus.Counter
	routeEdges  *prometheus.CounterVec
	routeTime   prometheus.Histogram
	loads       *prometheus.CounterVec
	loadTime    prometheus.Histogram
	requests    *prometheus.CounterVec
	reqTime     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// It panics if registration fails, mirroring prometheus.MustRegister.
func New(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		rects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "rect_reports_total",
			Help:      "Node rectangle reports by outcome (updated or debounced).",
		}, []string{"outcome"}),
		viewports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "viewport_updates_total",
			Help:      "Canvas viewport replacements.",
		}),
		routePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "passes_total",
			Help:      "Edge routing passes.",
		}),
		routeEdges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "edges_total",
			Help:      "Edges processed by routing outcome.",
		}, []string{"outcome"}),
		routeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "pass_duration_seconds",
			Help:      "Time spent in one routing pass.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "loads_total",
			Help:      "Project loads by result code.",
		}, []string{"result"}),
		loadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "load_duration_seconds",
			Help:      "Project load latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Backend HTTP requests by method and status.",
		}, []string{"method", "status"}),
		reqTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Backend HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(
		h.rects, h.viewports,
		h.routePasses, h.routeEdges, h.routeTime,
		h.loads, h.loadTime,
		h.requests, h.reqTime,
	)
	return h
}

// Install registers h for every hook category.
func (h *Hooks) Install() {
	observability.SetLayoutHooks(h)
	observability.SetRouteHooks(h)
	observability.SetGatewayHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *Hooks) OnRectReported(_ string, updated bool) {
	if updated {
		h.rects.WithLabelValues("updated").Inc()
		return
	}
	h.rects.WithLabelValues("debounced").Inc()
}

func (h *Hooks) OnViewportUpdated() { h.viewports.Inc() }

func (h *Hooks) OnRouteComplete(rendered, dropped int, d time.Duration) {
	h.routePasses.Inc()
	h.routeEdges.WithLabelValues("rendered").Add(float64(rendered))
	h.routeEdges.WithLabelValues("dropped").Add(float64(dropped))
	h.routeTime.Observe(d.Seconds())
}

func (h *Hooks) OnLoadStart(context.Context, string) {}

func (h *Hooks) OnLoadComplete(_ context.Context, _ string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = string(kerrors.GetCode(err))
		if result == "" {
			result = "error"
		}
	}
	h.loads.WithLabelValues(result).Inc()
	h.loadTime.Observe(d.Seconds())
}

func (h *Hooks) OnRequest(context.Context, string, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, method, _, _ string, status int, d time.Duration) {
	h.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	h.reqTime.WithLabelValues(method).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, method, _, _ string, _ error) {
	h.requests.WithLabelValues(method, "error").Inc()
}

var (
	_ observability.LayoutHooks  = (*Hooks)(nil)
	_ observability.RouteHooks   = (*Hooks)(nil)
	_ observability.GatewayHooks = (*Hooks)(nil)
	_ observability.HTTPHooks    = (*Hooks)(nil)
)
