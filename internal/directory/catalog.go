package directory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source fetches the directory stored by the backend. A nil Data with a
// nil error means the backend has none configured.
type Source interface {
	GetDirectory(ctx context.Context) (*Data, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Catalog serves the directory from a short-lived cache in front of the
// backend. When the backend fails or has nothing stored, the built-in
// default is served instead.
type Catalog struct {
	source Source
	clock  Clock
	ttl    time.Duration

	mu       sync.RWMutex
	cached   *Data
	cachedAt time.Time
}

// NewCatalog creates a Catalog with the given cache TTL.
func NewCatalog(source Source, ttl time.Duration) *Catalog {
	return NewCatalogWithClock(source, realClock{}, ttl)
}

// NewCatalogWithClock creates a Catalog with a custom clock (for testing).
func NewCatalogWithClock(source Source, clock Clock, ttl time.Duration) *Catalog {
	return &Catalog{source: source, clock: clock, ttl: ttl}
}

// Get returns the current directory. It never fails.
func (c *Catalog) Get(ctx context.Context) Data {
	// Fast path: read lock for cache hit.
	c.mu.RLock()
	if c.cached != nil && c.clock.Now().Before(c.cachedAt.Add(c.ttl)) {
		d := c.cached.Clone()
		c.mu.RUnlock()
		return d
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock.
	if c.cached != nil && c.clock.Now().Before(c.cachedAt.Add(c.ttl)) {
		return c.cached.Clone()
	}

	d, err := c.source.GetDirectory(ctx)
	switch {
	case err != nil:
		slog.Warn("directory: backend unavailable, serving default", "error", err)
		// Failures are not cached so the next request retries.
		return Default()
	case d == nil || d.IsEmpty():
		fresh := Default()
		d = &fresh
	case d.Validate() != nil:
		slog.Warn("directory: backend data misaligned, serving default", "error", d.Validate())
		fresh := Default()
		d = &fresh
	}

	c.cached = d
	c.cachedAt = c.clock.Now()
	return d.Clone()
}

// Invalidate drops the cached copy so the next Get reads the backend.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}
