package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CatalogSource loads the full product list from the external catalog
type CatalogSource interface {
	FetchProducts(ctx context.Context) (map[int64]fulfillment.Product, error)
}

// RefreshObserver is told about every refresh attempt
type RefreshObserver func(cache string, err error)

type catalogSnapshot struct {
	products  map[int64]fulfillment.Product
	fetchedAt time.Time
}

// CatalogCache memoizes the product list. A snapshot younger than the
// lifetime is served directly; an older one triggers a single shared
// refresh. A failed refresh keeps the previous snapshot, which is empty on
// cold start.
type CatalogCache struct {
	source   CatalogSource
	lifetime time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	observe  RefreshObserver
	now      func() time.Time

	snapshot atomic.Pointer[catalogSnapshot]
	group    singleflight.Group

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// CatalogOption configures a CatalogCache
type CatalogOption func(*CatalogCache)

// WithCatalogLogger sets the logger
func WithCatalogLogger(logger *zap.Logger) CatalogOption {
	return func(c *CatalogCache) {
		c.logger = logger
	}
}

// WithCatalogObserver registers a refresh observer
func WithCatalogObserver(fn RefreshObserver) CatalogOption {
	return func(c *CatalogCache) {
		c.observe = fn
	}
}

// WithCatalogClock overrides the time source
func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(c *CatalogCache) {
		c.now = now
	}
}

// NewCatalogCache creates a cache over source. timeout bounds each refresh.
func NewCatalogCache(source CatalogSource, lifetime, timeout time.Duration, opts ...CatalogOption) *CatalogCache {
	c := &CatalogCache{
		source:   source,
		lifetime: lifetime,
		timeout:  timeout,
		logger:   zap.NewNop(),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snapshot.Store(&catalogSnapshot{products: map[int64]fulfillment.Product{}})
	return c
}

// Fetch returns the current product map, refreshing it when stale. The
// returned map is shared and must not be modified.
func (c *CatalogCache) Fetch(ctx context.Context) map[int64]fulfillment.Product {
	snap := c.snapshot.Load()
	if c.fresh(snap) {
		return snap.products
	}
	return c.refresh(ctx, false)
}

// Lookup returns one product from the current snapshot
func (c *CatalogCache) Lookup(ctx context.Context, id int64) (fulfillment.Product, bool) {
	p, ok := c.Fetch(ctx)[id]
	return p, ok
}

// Age returns how old the current snapshot is, or -1 before the first
// successful load
func (c *CatalogCache) Age() time.Duration {
	snap := c.snapshot.Load()
	if snap.fetchedAt.IsZero() {
		return -1
	}
	return c.now().Sub(snap.fetchedAt)
}

// Refresh forces a reload regardless of age
func (c *CatalogCache) Refresh(ctx context.Context) map[int64]fulfillment.Product {
	return c.refresh(ctx, true)
}

func (c *CatalogCache) fresh(snap *catalogSnapshot) bool {
	return !snap.fetchedAt.IsZero() && c.now().Sub(snap.fetchedAt) < c.lifetime
}

func (c *CatalogCache) refresh(ctx context.Context, force bool) map[int64]fulfillment.Product {
	v, _, _ := c.group.Do("catalog", func() (any, error) {
		// A concurrent caller may have refreshed while we waited
		if snap := c.snapshot.Load(); !force && c.fresh(snap) {
			return snap.products, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		products, err := c.source.FetchProducts(fetchCtx)
		if c.observe != nil {
			c.observe("catalog", err)
		}
		if err != nil {
			prev := c.snapshot.Load()
			c.logger.Warn("Catalog refresh failed, serving previous snapshot",
				zap.Error(err),
				zap.Int("cached_products", len(prev.products)),
			)
			return prev.products, nil
		}

		c.snapshot.Store(&catalogSnapshot{products: products, fetchedAt: c.now()})
		c.logger.Info("Catalog refreshed", zap.Int("products", len(products)))
		return products, nil
	})
	return v.(map[int64]fulfillment.Product)
}

// Start runs the background refresher: one refresh after initialDelay, then
// one every interval until Stop
func (c *CatalogCache) Start(ctx context.Context, initialDelay, interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		timer := time.NewTimer(initialDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			c.refresh(ctx, true)
			select {
			case <-ticker.C:
			case <-c.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the background refresher and waits for it to exit
func (c *CatalogCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
}
