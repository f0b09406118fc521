package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"FadiSync/internal/catalog"
)

// Cache is the incremental differ: a process-lifetime item cache that asks
// the remote only for items modified since the last successful check. It is
// never reconciled with the persisted snapshot.
type Cache struct {
	remote   Lister
	log      *zap.Logger
	metrics  *Metrics
	pageSize int
	now      func() time.Time

	mu        sync.Mutex
	items     []catalog.Item
	known     map[int64]int // id -> index into items
	lastFetch time.Time
	baseline  bool
}

type CacheResult struct {
	Items        []catalog.Item `json:"items"`
	TotalCount   int            `json:"totalCount"`
	FromCache    bool           `json:"fromCache"`
	NewCount     int            `json:"newCount"`
	UpdatedCount int            `json:"updatedCount"`
}

type CacheStats struct {
	Size      int        `json:"size"`
	Baseline  bool       `json:"baseline"`
	LastFetch *time.Time `json:"lastFetch,omitempty"`
}

func NewCache(remote Lister, pageSize int, log *zap.Logger, m *Metrics) *Cache {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Cache{
		remote:   remote,
		log:      log,
		metrics:  m,
		pageSize: pageSize,
		now:      time.Now,
	}
}

func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached catalog, refreshing it from the remote first. The
// first call in a process lifetime runs the full paged baseline; later calls
// run one modified-since query. After a baseline exists, a fetch error is
// answered from cache — callers cannot tell staleness from quiescence, which
// matches the persisted contract of this layer.
func (c *Cache) Get(ctx context.Context) (CacheResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.baseline {
		return c.baselineLocked(ctx)
	}

	delta, err := c.remote.ListModifiedSince(ctx, c.lastFetch, c.pageSize)
	if err != nil {
		if c.log != nil {
			c.log.Warn("incremental fetch failed, serving cache", zap.Error(err))
		}
		return c.resultLocked(true, 0, 0), nil
	}

	newCount, updatedCount := c.mergeLocked(delta)
	c.lastFetch = c.now()
	c.metrics.incremental(newCount, updatedCount)

	return c.resultLocked(len(delta) == 0, newCount, updatedCount), nil
}

// Clear drops the cache; the next Get re-runs the full baseline.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.known = nil
	c.lastFetch = time.Time{}
	c.baseline = false
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := CacheStats{Size: len(c.items), Baseline: c.baseline}
	if !c.lastFetch.IsZero() {
		t := c.lastFetch
		st.LastFetch = &t
	}
	return st
}

func (c *Cache) baselineLocked(ctx context.Context) (CacheResult, error) {
	items, err := fetchAllProducts(ctx, c.remote, c.pageSize)
	if err != nil {
		return CacheResult{}, err
	}

	c.items = items
	c.known = make(map[int64]int, len(items))
	for i, it := range items {
		c.known[it.ID] = i
	}
	c.lastFetch = c.now()
	c.baseline = true

	if c.log != nil {
		c.log.Info("incremental baseline loaded", zap.Int("items", len(items)))
	}
	return c.resultLocked(false, 0, 0), nil
}

// mergeLocked replaces known items in place (index preserved) and appends
// unknown ones.
func (c *Cache) mergeLocked(delta []catalog.Item) (newCount, updatedCount int) {
	for _, it := range delta {
		if i, ok := c.known[it.ID]; ok {
			c.items[i] = it
			updatedCount++
			continue
		}
		c.items = append(c.items, it)
		c.known[it.ID] = len(c.items) - 1
		newCount++
	}
	return newCount, updatedCount
}

func (c *Cache) resultLocked(fromCache bool, newCount, updatedCount int) CacheResult {
	out := make([]catalog.Item, len(c.items))
	copy(out, c.items)

	return CacheResult{
		Items:        out,
		TotalCount:   len(out),
		FromCache:    fromCache,
		NewCount:     newCount,
		UpdatedCount: updatedCount,
	}
}
