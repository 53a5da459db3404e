// Package store holds the in-memory pipeline snapshot and persists changes to
// per-entity collections.
package store

import (
	"context"
	"sync"
)

// Entity is any record keyed by a string id.
type Entity interface {
	EntityID() string
}

// Collection is the persistence port for one entity type.
type Collection[T Entity] interface {
	// ReadAll returns every record keyed by id.
	ReadAll(ctx context.Context) (map[string]T, error)
	// Patch upserts and deletes records in one unit of work.
	Patch(ctx context.Context, upserts []T, deletes []string) error
	// Replace makes the collection hold exactly all.
	Replace(ctx context.Context, all map[string]T) error
}

// MemoryCollection is a Collection backed by a map.
type MemoryCollection[T Entity] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewMemoryCollection returns a collection seeded with items.
func NewMemoryCollection[T Entity](items ...T) *MemoryCollection[T] {
	c := &MemoryCollection[T]{items: make(map[string]T, len(items))}
	for _, item := range items {
		c.items[item.EntityID()] = item
	}
	return c
}

func (c *MemoryCollection[T]) ReadAll(_ context.Context) (map[string]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]T, len(c.items))
	for id, item := range c.items {
		out[id] = item
	}
	return out, nil
}

func (c *MemoryCollection[T]) Patch(_ context.Context, upserts []T, deletes []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range upserts {
		c.items[item.EntityID()] = item
	}
	for _, id := range deletes {
		delete(c.items, id)
	}
	return nil
}

func (c *MemoryCollection[T]) Replace(_ context.Context, all map[string]T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]T, len(all))
	for id, item := range all {
		c.items[id] = item
	}
	return nil
}

// Len returns the number of stored records.
func (c *MemoryCollection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns one record.
func (c *MemoryCollection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}
