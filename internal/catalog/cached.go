// Package catalog provides a read-through wrapper for the product
// repository with a bloom-filter negative cache: lookups for identifiers
// that are definitely not in the catalog are answered without a database
// round trip. False positives fall through to the underlying repository, so
// answers are never wrong in that direction.
//
// The filter is a snapshot: products inserted after the last Warm are
// reported missing until the next re-warm. Use it on paths where short
// staleness is acceptable (cart mutations), not where availability must be
// decided on live data (checkout).
package catalog

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/Julien07012002/boutique/internal/domain/product"
)

const (
	filterCapacity          = 1_000_000
	filterFalsePositiveRate = 0.001
)

var _ product.Repository = (*Cached)(nil)

// Cached decorates a product.Repository with the negative cache.
type Cached struct {
	inner product.Repository

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	warmed bool
}

// NewCached creates a Cached wrapper. Until Warm succeeds every lookup falls
// through to the underlying repository.
func NewCached(inner product.Repository) *Cached {
	return &Cached{
		inner:  inner,
		filter: bloom.NewWithEstimates(filterCapacity, filterFalsePositiveRate),
	}
}

// Warm rebuilds the filter from the full catalog. Safe to call periodically.
func (c *Cached) Warm(ctx context.Context) error {
	products, err := c.inner.List(ctx)
	if err != nil {
		return err
	}

	filter := bloom.NewWithEstimates(filterCapacity, filterFalsePositiveRate)
	for _, p := range products {
		filter.AddString(p.ID)
	}

	c.mu.Lock()
	c.filter = filter
	c.warmed = true
	c.mu.Unlock()
	return nil
}

// List delegates to the underlying repository.
func (c *Cached) List(ctx context.Context) ([]product.Product, error) {
	return c.inner.List(ctx)
}

// GetByID returns product.ErrNotFound without touching the database when
// the filter rules the id out.
func (c *Cached) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if c.definitelyMissing(id) {
		return nil, product.ErrNotFound
	}
	return c.inner.GetByID(ctx, id)
}

// GetByIDs skips identifiers the filter rules out and queries the rest.
func (c *Cached) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	candidates := make([]string, 0, len(ids))
	for _, id := range ids {
		if !c.definitelyMissing(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return c.inner.GetByIDs(ctx, candidates)
}

func (c *Cached) definitelyMissing(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warmed && !c.filter.TestString(id)
}
