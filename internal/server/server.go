// Package server exposes a workspace session over HTTP for a rendering layer.
//
// A webview or browser page reports node measurements and viewport changes
// through the JSON routes and receives routed edges either by polling
// GET /api/edges or by holding a websocket on /ws, which pushes a fresh
// routing result after every effective change. Error bodies use the same
// {"detail": "..."} shape as the project backend.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/kdag/pkg/workspace"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server is the bridge between one workspace session and its renderer.
type Server struct {
	sess     *workspace.Session
	logger   *log.Logger
	gatherer prometheus.Gatherer
	origins  []string
	hub      *hub
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and broadcast logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer sets the registry served on /metrics. The default is the
// global Prometheus registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithOriginPatterns allows websocket upgrades from the given host patterns,
// e.g. "localhost:*" for a dev server. Same-origin requests are always allowed.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, patterns...) }
}

// New creates a server for sess.
func New(sess *workspace.Session, opts ...Option) *Server {
	s := &Server{
		sess:     sess,
		logger:   log.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(sess, s.logger)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleWatch)

	r.Route("/api", func(r chi.Router) {
		r.Route("/layout", func(r chi.Router) {
			r.Get("/", s.handleLayout)
			r.Post("/rects", s.handleReportRects)
			r.Delete("/rects/{id}", s.handleRemoveRect)
			r.Put("/viewport", s.handleViewport)
			r.Get("/position/{id}", s.handlePosition)
		})

		r.Get("/edges", s.handleEdges)
		r.Post("/edges/compute", s.handleComputeEdges)

		r.Route("/modes", func(r chi.Router) {
			r.Delete("/", s.handleClearModes)
			r.Post("/persist", s.handlePersistModes)
			r.Put("/{type}/{id}", s.handleSaveMode)
			r.Get("/{type}/{id}", s.handleGetMode)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/current", s.handleCurrentProject)
			r.Post("/{id}/load", s.handleLoadProject)
		})

		r.Get("/analysis/{id}", s.handleAnalysis)
		r.Get("/export", s.handleExport)
	})
	return r
}

// logRequests logs one line per request at debug level, and at warn level
// for server errors.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", kv...)
			return
		}
		s.logger.Debug("request", kv...)
	})
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully. The broadcast loop runs alongside the HTTP server; a failure
// in either stops both.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", "addr", "http://"+l.Addr().String(), "session", s.sess.ID())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.hub.run(ctx)
	})
	g.Go(func() error {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.hub.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
