package layout

import (
	"sync"

	"github.com/matzehuels/kdag/pkg/geom"
	"github.com/matzehuels/kdag/pkg/observability"
)

// DefaultEpsilon is the smallest per-axis change that replaces a stored rect.
const DefaultEpsilon = 1.0

// Store maps node ids to their last reported viewport-absolute rectangles
// and holds the current canvas viewport.
type Store struct {
	mu       sync.RWMutex
	rects    map[string]geom.Rect
	viewport geom.Viewport
	epsilon  float64
	version  uint64

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithEpsilon overrides the debounce threshold. Non-positive values are
// ignored.
func WithEpsilon(eps float64) Option {
	return func(s *Store) {
		if eps > 0 {
			s.epsilon = eps
		}
	}
}

// NewStore creates an empty store with a zero viewport.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rects:   make(map[string]geom.Rect),
		epsilon: DefaultEpsilon,
		subs:    make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReportNodeRect records a fresh measurement for nodeID. The stored rect is
// replaced wholesale only when it is new or some axis moved by more than the
// epsilon. It reports whether the store changed.
func (s *Store) ReportNodeRect(nodeID string, rect geom.Rect) bool {
	s.mu.Lock()
	cur, ok := s.rects[nodeID]
	updated := !ok || !cur.Within(rect, s.epsilon)
	if updated {
		s.rects[nodeID] = rect
		s.version++
	}
	s.mu.Unlock()

	observability.Layout().OnRectReported(nodeID, updated)
	if updated {
		s.notify()
	}
	return updated
}

// UpdateViewport replaces the canvas origin and scroll offset unconditionally.
func (s *Store) UpdateViewport(origin geom.Origin, scroll geom.Scroll) {
	s.mu.Lock()
	s.viewport = geom.Viewport{CanvasOrigin: origin, ScrollOffset: scroll}
	s.version++
	s.mu.Unlock()

	observability.Layout().OnViewportUpdated()
	s.notify()
}

// Rect returns a copy of the stored rectangle for nodeID.
func (s *Store) Rect(nodeID string) (geom.Rect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rects[nodeID]
	return r, ok
}

// Viewport returns a copy of the current viewport state.
func (s *Store) Viewport() geom.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// RelativePosition derives the canvas-relative center of nodeID from the
// current rect and viewport. It returns false when no rect is registered,
// which callers treat as "not yet drawable".
func (s *Store) RelativePosition(nodeID string) (RelativePosition, bool) {
	s.mu.RLock()
	r, ok := s.rects[nodeID]
	vp := s.viewport
	s.mu.RUnlock()
	if !ok {
		return RelativePosition{}, false
	}
	return ToRelativeCenter(r, vp), true
}

// Remove forgets nodeID, e.g. after the node was deleted or unmounted.
func (s *Store) Remove(nodeID string) bool {
	s.mu.Lock()
	_, ok := s.rects[nodeID]
	if ok {
		delete(s.rects, nodeID)
		s.version++
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

// Reset drops every rect and zeroes the viewport.
func (s *Store) Reset() {
	s.mu.Lock()
	s.rects = make(map[string]geom.Rect)
	s.viewport = geom.Viewport{}
	s.version++
	s.mu.Unlock()

	s.notify()
}

// Len returns the number of registered nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rects)
}

// Version returns a counter that increases on every effective change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Rects returns a copy of every stored rect keyed by node id.
func (s *Store) Rects() map[string]geom.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]geom.Rect, len(s.rects))
	for id, r := range s.rects {
		out[id] = r
	}
	return out
}

// Subscribe registers fn to run after every effective change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
