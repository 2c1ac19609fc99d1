// Package gateway loads project documents and exposes the current one.
//
// Loads are asynchronous relative to whatever drives the UI, and two loads
// can be in flight at once. Every call to [Gateway.Load] takes a new request
// token; a response is applied only if its token is still the newest issued.
// An older response is discarded with STALE_RESPONSE, so a slow first load
// can never overwrite a faster second one.
//
// Until a load is applied the previous document stays visible. A failed
// load returns LOAD_FAILED and leaves it untouched.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/httputil"
	"github.com/matzehuels/kdag/pkg/observability"
	"github.com/matzehuels/kdag/pkg/project"
)

// Fetcher retrieves a project document. *api.Client satisfies it.
type Fetcher interface {
	GetProject(ctx context.Context, id string) (*project.Project, error)
}

// Listener is notified after a document is applied. p is the listener's own
// copy.
type Listener func(id string, p *project.Project)

// Gateway owns the currently loaded project.
type Gateway struct {
	fetcher Fetcher
	policy  httputil.Policy
	logger  *log.Logger

	mu        sync.RWMutex
	issued    uint64
	currentID string
	current   *project.Project

	subMu   sync.Mutex
	subs    map[int]Listener
	nextSub int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRetry sets the retry policy for transient fetch failures.
func WithRetry(p httputil.Policy) Option {
	return func(g *Gateway) { g.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a gateway with no project loaded.
func New(f Fetcher, opts ...Option) *Gateway {
	g := &Gateway{
		fetcher: f,
		policy:  httputil.DefaultPolicy,
		logger:  log.Default(),
		subs:    make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Load fetches project id and makes it current, unless a newer Load or
// Replace was issued meanwhile. The returned document is the caller's copy.
func (g *Gateway) Load(ctx context.Context, id string) (*project.Project, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "project id is required")
	}
	token := g.issue()

	hooks := observability.Gateway()
	hooks.OnLoadStart(ctx, id)
	start := time.Now()

	p, err := g.fetch(ctx, id)
	if err == nil {
		err = g.apply(token, id, p)
	}
	hooks.OnLoadComplete(ctx, id, time.Since(start), err)
	if err != nil {
		g.logger.Debug("project load", "id", id, "token", token, "err", err)
		return nil, err
	}
	g.logger.Debug("project load", "id", id, "token", token, "chapters", len(p.Chapters), "edges", len(p.Edges))
	return p.Clone(), nil
}

func (g *Gateway) fetch(ctx context.Context, id string) (*project.Project, error) {
	var p *project.Project
	err := g.policy.Do(ctx, func() error {
		var err error
		p, err = g.fetcher.GetProject(ctx, id)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "load project %s", id)
	}
	if p == nil {
		return nil, errors.New(errors.ErrCodeLoadFailed, "load project %s: empty response", id)
	}
	return p, nil
}

func (g *Gateway) issue() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.issued
}

// apply installs p if token is still the newest. It notifies listeners
// outside the lock.
func (g *Gateway) apply(token uint64, id string, p *project.Project) error {
	g.mu.Lock()
	if token != g.issued {
		latest := g.issued
		g.mu.Unlock()
		return errors.New(errors.ErrCodeStaleResponse, "project %s: response for request %d superseded by %d", id, token, latest)
	}
	g.currentID = id
	g.current = p.Clone()
	g.mu.Unlock()

	g.notify(id, p)
	return nil
}

// Replace installs p as current without fetching, e.g. with the document a
// mutation returned. Any load still in flight becomes stale.
func (g *Gateway) Replace(p *project.Project) error {
	if p == nil || p.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "replacement project must have an id")
	}
	return g.apply(g.issue(), p.ID, p)
}

// Current returns the id and a copy of the applied project. The project is
// nil before the first successful load.
func (g *Gateway) Current() (string, *project.Project) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentID, g.current.Clone()
}

// CurrentID returns the id of the applied project, or "" before the first
// successful load.
func (g *Gateway) CurrentID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentID
}

// Edges returns a copy of the current project's edges.
func (g *Gateway) Edges() []edges.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return nil
	}
	return append([]edges.Edge(nil), g.current.Edges...)
}

// Subscribe registers fn to run after every applied load. The returned
// function removes it.
func (g *Gateway) Subscribe(fn Listener) (cancel func()) {
	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.subMu.Unlock()

	return func() {
		g.subMu.Lock()
		delete(g.subs, id)
		g.subMu.Unlock()
	}
}

func (g *Gateway) notify(id string, p *project.Project) {
	g.subMu.Lock()
	fns := make([]Listener, 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.subMu.Unlock()

	for _, fn := range fns {
		fn(id, p.Clone())
	}
}
