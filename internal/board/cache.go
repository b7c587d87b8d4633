package board

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/appetiteclub/apt"
)

// OrderStateCache is the read-only cached projection of the orders
// collection. The store is the sole source of truth: the cache is warmed
// once at startup and afterwards only refreshed through change events —
// writes never touch it directly, so read-your-own-write is eventually
// consistent through the subscription loop.
type OrderStateCache struct {
	mu     sync.RWMutex
	orders map[string]*Order
	repo   OrderRepo
	logger apt.Logger
}

func NewOrderStateCache(repo OrderRepo, logger apt.Logger) *OrderStateCache {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OrderStateCache{
		orders: make(map[string]*Order),
		repo:   repo,
		logger: logger,
	}
}

// Warm loads the full collection and normalizes every document.
func (c *OrderStateCache) Warm(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	raws, err := c.repo.ListRaw(ctx)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}
	for _, raw := range raws {
		c.ingest(raw)
	}
	return nil
}

// Refresh re-fetches one document and replaces the cached projection.
// A document that no longer exists is dropped.
func (c *OrderStateCache) Refresh(ctx context.Context, id string) error {
	if c.repo == nil {
		return fmt.Errorf("order cache uninitialized")
	}
	raw, err := c.repo.Fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch order %s: %w", id, err)
	}
	if raw == nil {
		c.Drop(id)
		return nil
	}
	c.set(NormalizeOrder(id, raw))
	return nil
}

// Order returns a copy of one cached order.
func (c *OrderStateCache) Order(id string) (*Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Snapshot returns copies of all cached orders in a deterministic base
// order (creation time, then ID) ready for projection.
func (c *OrderStateCache) Snapshot() []*Order {
	c.mu.RLock()
	out := make([]*Order, 0, len(c.orders))
	for _, o := range c.orders {
		out = append(out, o.Clone())
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *OrderStateCache) Drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
}

func (c *OrderStateCache) set(o *Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = o
}

func (c *OrderStateCache) ingest(raw map[string]any) {
	id, ok := coerceString(raw["_id"])
	if !ok {
		c.logger.Debug("skipping order document without id")
		return
	}
	c.set(NormalizeOrder(id, raw))
}
