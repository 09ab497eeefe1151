// Package store holds the single rendered document that every viewer reads.
//
// The Cache owns exactly one Artifact. Reads share a read lock; an update
// takes the write lock, swaps in a new Artifact and publishes the change
// signal before releasing it, so any viewer that re-fetches in response to a
// signal sees that artifact or a newer one.
package store

import (
	"sync"
	"time"

	"github.com/conneroisu/marklive/internal/notify"
)

// Artifact is an immutable rendered document.
type Artifact struct {
	// Name is the display name of the source, used as the page title.
	Name string
	// HTML is the rendered body, not yet wrapped in the page template.
	HTML string
	// Version increases by one on every committed update. The initial
	// artifact has version 1.
	Version    uint64
	RenderedAt time.Time
}

// Publisher receives a signal for every committed update. Publish must not
// block; it is called while the cache's write lock is held.
type Publisher interface {
	Publish(sig notify.Signal) notify.Delivery
}

// Cache is the single-writer, many-reader holder of the current Artifact.
type Cache struct {
	mu        sync.RWMutex
	current   Artifact
	publisher Publisher
	now       func() time.Time
}

// New creates a cache seeded with the initial render. publisher may be nil.
func New(name, html string, publisher Publisher) *Cache {
	c := &Cache{
		publisher: publisher,
		now:       time.Now,
	}
	c.current = Artifact{
		Name:       name,
		HTML:       html,
		Version:    1,
		RenderedAt: c.now(),
	}
	return c
}

// Read returns the current artifact. It waits only for an in-flight Update.
func (c *Cache) Read() Artifact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Version returns the current artifact's version.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Version
}

// Update replaces the current artifact and emits exactly one change signal
// before the write lock is released. It returns the committed artifact.
func (c *Cache) Update(name, html string) Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = Artifact{
		Name:       name,
		HTML:       html,
		Version:    c.current.Version + 1,
		RenderedAt: c.now(),
	}

	if c.publisher != nil {
		c.publisher.Publish(notify.Signal{Kind: notify.SignalChanged, Version: c.current.Version})
	}

	return c.current
}
