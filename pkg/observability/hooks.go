// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about layout updates, edge routing, project loads and
// HTTP calls to the backend.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The Prometheus implementation lives in the prom subpackage so the core
// layout packages never import a metrics client.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetLayoutHooks(h)
//	    observability.SetRouteHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Gateway().OnLoadStart(ctx, projectID)
//	// ... fetch project ...
//	observability.Gateway().OnLoadComplete(ctx, projectID, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout store. Calls happen on the
// caller's goroutine for every measurement, so implementations must be cheap.
type LayoutHooks interface {
	// OnRectReported records a measurement; updated is false when the
	// debounce suppressed it.
	OnRectReported(nodeID string, updated bool)

	// OnViewportUpdated records a viewport replacement.
	OnViewportUpdated()
}

// =============================================================================
// Route Hooks
// =============================================================================

// RouteHooks receives events from the edge router.
type RouteHooks interface {
	// OnRouteComplete records one routing pass.
	OnRouteComplete(rendered, dropped int, duration time.Duration)
}

// =============================================================================
// Gateway Hooks
// =============================================================================

// GatewayHooks receives events from project loads.
type GatewayHooks interface {
	OnLoadStart(ctx context.Context, projectID string)
	OnLoadComplete(ctx context.Context, projectID string, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnRectReported(string, bool) {}
func (NoopLayoutHooks) OnViewportUpdated()          {}

// NoopRouteHooks is a no-op implementation of RouteHooks.
type NoopRouteHooks struct{}

func (NoopRouteHooks) OnRouteComplete(int, int, time.Duration) {}

// NoopGatewayHooks is a no-op implementation of GatewayHooks.
type NoopGatewayHooks struct{}

func (NoopGatewayHooks) OnLoadStart(context.Context, string)                           {}
func (NoopGatewayHooks) OnLoadComplete(context.Context, string, time.Duration, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks  LayoutHooks  = NoopLayoutHooks{}
	routeHooks   RouteHooks   = NoopRouteHooks{}
	gatewayHooks GatewayHooks = NoopGatewayHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetRouteHooks registers custom route hooks.
func SetRouteHooks(h RouteHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		routeHooks = h
	}
}

// SetGatewayHooks registers custom gateway hooks.
func SetGatewayHooks(h GatewayHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		gatewayHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Route returns the registered route hooks.
func Route() RouteHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return routeHooks
}

// Gateway returns the registered gateway hooks.
func Gateway() GatewayHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return gatewayHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	routeHooks = NoopRouteHooks{}
	gatewayHooks = NoopGatewayHooks{}
	httpHooks = NoopHTTPHooks{}
}
