package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"seating-backend/internal/metrics"
)

// slotCache holds resolved table ids per (layout, section number).
//
// Every placement write bumps the layout's generation and drops its keys once
// the transaction has committed. A reader only stores its result if the
// generation did not move while it was reading, so a snapshot taken before a
// commit is never cached after it.
type slotCache struct {
	items   *cache.Cache
	metrics *metrics.Metrics

	mu   sync.Mutex
	gens map[int64]uint64
}

func newSlotCache(ttl time.Duration, m *metrics.Metrics) *slotCache {
	return &slotCache{
		items:   cache.New(ttl, 2*ttl),
		metrics: m,
		gens:    make(map[int64]uint64),
	}
}

func slotKey(layoutID int64, number int) string {
	return fmt.Sprintf("slot:%d:%d", layoutID, number)
}

func (c *slotCache) generation(layoutID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[layoutID]
}

func (c *slotCache) get(layoutID int64, number int) ([]int64, bool) {
	v, ok := c.items.Get(slotKey(layoutID, number))
	c.metrics.SlotCache(ok)
	if !ok {
		return nil, false
	}
	return append([]int64(nil), v.([]int64)...), true
}

func (c *slotCache) put(layoutID int64, number int, gen uint64, ids []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[layoutID] != gen {
		return
	}
	c.items.SetDefault(slotKey(layoutID, number), append([]int64(nil), ids...))
}

// invalidate drops every cached slot of the given layouts.
func (c *slotCache) invalidate(layoutIDs ...int64) {
	if len(layoutIDs) == 0 {
		return
	}
	prefixes := make([]string, 0, len(layoutIDs))
	c.mu.Lock()
	for _, id := range layoutIDs {
		c.gens[id]++
		prefixes = append(prefixes, fmt.Sprintf("slot:%d:", id))
	}
	c.mu.Unlock()

	for key := range c.items.Items() {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				c.items.Delete(key)
				break
			}
		}
	}
}
