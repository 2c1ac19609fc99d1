// Package modecache holds the geometry of the row/column arrangement mode.
//
// The row/column view lays out chapters, sections and nodes with its own
// algorithm. Its rectangles live here, apart from the free-form
// [layout.Store], so switching modes never loses free-form positions and
// re-entering row/column mode restores the last arrangement instead of
// recomputing it. Nothing in this package is derived from the layout store.
//
// A miss is not an error: [Cache.Get] returns false and callers compute a
// fresh layout.
//
// [layout.Store]: github.com/matzehuels/kdag/pkg/layout.Store
package modecache

import (
	"sync"

	"github.com/matzehuels/kdag/pkg/errors"
)

// EntityType names one of the three keyed stores.
type EntityType string

const (
	Chapter EntityType = "chapter"
	Section EntityType = "section"
	Node    EntityType = "node"
)

// EntityTypes lists every valid entity type in display order.
var EntityTypes = []EntityType{Chapter, Section, Node}

// Valid reports whether t is one of chapter, section or node.
func (t EntityType) Valid() bool {
	switch t {
	case Chapter, Section, Node:
		return true
	}
	return false
}

// ParseEntityType validates s as an entity type.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid entity type: %q (want chapter, section or node)", s)
	}
	return t, nil
}

// Layout is one cached rectangle in the row/column renderer's space.
type Layout struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Snapshot is a detached copy of every store, keyed by entity type then id.
type Snapshot map[EntityType]map[string]Layout

// Empty reports whether the snapshot holds no layouts.
func (s Snapshot) Empty() bool {
	for _, m := range s {
		if len(m) > 0 {
			return false
		}
	}
	return true
}

// Cache is the row/column layout cache. It is safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	stores map[EntityType]map[string]Layout
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{stores: newStores()}
}

func newStores() map[EntityType]map[string]Layout {
	m := make(map[EntityType]map[string]Layout, len(EntityTypes))
	for _, t := range EntityTypes {
		m[t] = make(map[string]Layout)
	}
	return m
}

// Save upserts the layout for (typ, id). An unknown entity type is rejected.
func (c *Cache) Save(typ EntityType, id string, l Layout) error {
	if !typ.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "invalid entity type: %q", string(typ))
	}
	c.mu.Lock()
	c.stores[typ][id] = l
	c.mu.Unlock()
	return nil
}

// Get returns the layout for (typ, id). Unknown types and ids miss.
func (c *Cache) Get(typ EntityType, id string) (Layout, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	store, ok := c.stores[typ]
	if !ok {
		return Layout{}, false
	}
	l, ok := store[id]
	return l, ok
}

// Clear empties all three stores at once.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.stores = newStores()
	c.mu.Unlock()
}

// Len returns the number of entries cached for typ.
func (c *Cache) Len(typ EntityType) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stores[typ])
}

// Snapshot copies out every store.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(Snapshot, len(c.stores))
	for t, store := range c.stores {
		m := make(map[string]Layout, len(store))
		for id, l := range store {
			m[id] = l
		}
		out[t] = m
	}
	return out
}

// Restore replaces the cache contents with a copy of snap. Entries under
// unknown entity types are skipped.
func (c *Cache) Restore(snap Snapshot) {
	stores := newStores()
	for t, m := range snap {
		if !t.Valid() {
			continue
		}
		for id, l := range m {
			stores[t][id] = l
		}
	}
	c.mu.Lock()
	c.stores = stores
	c.mu.Unlock()
}
