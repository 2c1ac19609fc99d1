// Package workspace ties the layout store, mode layout cache, project
// gateway and edge router into one per-window context.
//
// A [Session] is the surface the rendering layer calls every frame: it
// reports measured rectangles and viewport changes, reads derived positions
// and rendered edges, and manages the row/column mode cache. There is no
// package-level state; two sessions never share layout data.
//
// Switching to a different project resets the layout store and the mode
// cache. When a snapshot store is configured, the outgoing project's mode
// layouts are saved first and the incoming project's are restored after.
package workspace

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/gateway"
	"github.com/matzehuels/kdag/pkg/geom"
	"github.com/matzehuels/kdag/pkg/httputil"
	"github.com/matzehuels/kdag/pkg/layout"
	"github.com/matzehuels/kdag/pkg/modecache"
	"github.com/matzehuels/kdag/pkg/project"
	"github.com/matzehuels/kdag/pkg/snapshot"
)

// Session is one editor context.
type Session struct {
	id     string
	store  *layout.Store
	modes  *modecache.Cache
	gw     *gateway.Gateway
	snaps  snapshot.Store
	logger *log.Logger

	mu        sync.Mutex
	projectID string
}

type config struct {
	epsilon float64
	snaps   snapshot.Store
	logger  *log.Logger
	retry   *httputil.Policy
}

// Option configures a Session.
type Option func(*config)

// WithEpsilon sets the layout store's debounce threshold.
func WithEpsilon(eps float64) Option {
	return func(c *config) { c.epsilon = eps }
}

// WithSnapshots persists mode layouts across project switches.
func WithSnapshots(s snapshot.Store) Option {
	return func(c *config) { c.snaps = s }
}

// WithLogger sets the logger for the session and its gateway.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRetry sets the gateway's retry policy.
func WithRetry(p httputil.Policy) Option {
	return func(c *config) { c.retry = &p }
}

// New creates a session that loads projects through f.
func New(f gateway.Fetcher, opts ...Option) *Session {
	cfg := config{epsilon: layout.DefaultEpsilon}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}
	if cfg.snaps == nil {
		cfg.snaps = snapshot.Null{}
	}
	id := uuid.NewString()
	logger := cfg.logger.With("session", id[:8])

	gwOpts := []gateway.Option{gateway.WithLogger(logger)}
	if cfg.retry != nil {
		gwOpts = append(gwOpts, gateway.WithRetry(*cfg.retry))
	}
	return &Session{
		id:     id,
		store:  layout.NewStore(layout.WithEpsilon(cfg.epsilon)),
		modes:  modecache.New(),
		gw:     gateway.New(f, gwOpts...),
		snaps:  cfg.snaps,
		logger: logger,
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Store returns the session's layout store.
func (s *Session) Store() *layout.Store { return s.store }

// Modes returns the session's mode layout cache.
func (s *Session) Modes() *modecache.Cache { return s.modes }

// =============================================================================
// Layout
// =============================================================================

// ReportNodeRect records a measured rectangle. See layout.Store.ReportNodeRect.
func (s *Session) ReportNodeRect(nodeID string, rect geom.Rect) bool {
	return s.store.ReportNodeRect(nodeID, rect)
}

// UpdateViewport replaces the canvas origin and scroll offset.
func (s *Session) UpdateViewport(origin geom.Origin, scroll geom.Scroll) {
	s.store.UpdateViewport(origin, scroll)
}

// RelativePosition returns nodeID's canvas-relative center, if measured.
func (s *Session) RelativePosition(nodeID string) (layout.RelativePosition, bool) {
	return s.store.RelativePosition(nodeID)
}

// =============================================================================
// Mode layouts
// =============================================================================

// SaveModeLayout upserts a row/column layout.
func (s *Session) SaveModeLayout(typ modecache.EntityType, id string, l modecache.Layout) error {
	return s.modes.Save(typ, id, l)
}

// GetModeLayout returns a row/column layout, if cached.
func (s *Session) GetModeLayout(typ modecache.EntityType, id string) (modecache.Layout, bool) {
	return s.modes.Get(typ, id)
}

// ClearModeLayout empties the row/column cache.
func (s *Session) ClearModeLayout() {
	s.modes.Clear()
}

// =============================================================================
// Edges
// =============================================================================

// ComputeRenderedEdges routes the given edges against current positions.
func (s *Session) ComputeRenderedEdges(es []edges.Edge) []edges.RenderedEdge {
	return edges.Route(s.store, es)
}

// RouteReport routes es and reports what was left out.
func (s *Session) RouteReport(es []edges.Edge) edges.Report {
	return edges.RouteReport(s.store, es)
}

// RenderedEdges routes the loaded project's edges. It is empty before the
// first load.
func (s *Session) RenderedEdges() []edges.RenderedEdge {
	return edges.Route(s.store, s.gw.Edges())
}

// RenderedReport is RenderedEdges plus the edges that could not be drawn.
func (s *Session) RenderedReport() edges.Report {
	return edges.RouteReport(s.store, s.gw.Edges())
}

// =============================================================================
// Projects
// =============================================================================

// LoadProject loads id and makes it current. Loading a different project
// than the current one resets layout state; see the package doc.
func (s *Session) LoadProject(ctx context.Context, id string) (*project.Project, error) {
	p, err := s.gw.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.syncProject(ctx)
	return p, nil
}

// Replace installs a document returned by a mutation as current.
func (s *Session) Replace(ctx context.Context, p *project.Project) error {
	if err := s.gw.Replace(p); err != nil {
		return err
	}
	s.syncProject(ctx)
	return nil
}

// syncProject moves layout state to whichever project the gateway holds now.
// Two loads can apply in one order and reach here in the other; reading the
// gateway under s.mu makes the last caller settle on the last applied id, so
// layout and mode state are never filed under a project that is no longer
// current.
func (s *Session) syncProject(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.gw.CurrentID()
	if id == "" || id == s.projectID {
		return
	}
	prev := s.projectID
	if prev != "" {
		if err := s.snaps.Save(ctx, prev, s.modes.Snapshot()); err != nil {
			s.logger.Warn("save mode layouts", "project", prev, "err", err)
		}
	}
	s.store.Reset()
	s.modes.Clear()
	s.projectID = id

	snap, ok, err := s.snaps.Load(ctx, id)
	switch {
	case err != nil:
		s.logger.Warn("load mode layouts", "project", id, "err", err)
	case ok:
		s.modes.Restore(snap)
		s.logger.Debug("restored mode layouts", "project", id)
	}
	s.logger.Debug("switched project", "from", prev, "to", id)
}

// ProjectID returns the id of the project whose layout state is live, or ""
// before the first load.
func (s *Session) ProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// Project returns the current project id and a copy of its document.
func (s *Session) Project() (string, *project.Project) {
	return s.gw.Current()
}

// Analyze computes the dependency neighborhood of focus in the current
// project without a backend round trip.
func (s *Session) Analyze(focus string) project.Analysis {
	_, p := s.gw.Current()
	if p == nil {
		return (&project.Project{}).Analyze("")
	}
	return p.Analyze(focus)
}

// PersistModes saves the current project's mode layouts, if any project is
// loaded.
func (s *Session) PersistModes(ctx context.Context) error {
	s.mu.Lock()
	id := s.projectID
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	return s.snaps.Save(ctx, id, s.modes.Snapshot())
}

// Watch calls fn whenever rendered edges may have changed: after an
// effective layout change or an applied project load.
func (s *Session) Watch(fn func()) (cancel func()) {
	c1 := s.store.Subscribe(fn)
	c2 := s.gw.Subscribe(func(string, *project.Project) { fn() })
	return func() {
		c1()
		c2()
	}
}
