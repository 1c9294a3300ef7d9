package cache

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"go.uber.org/zap"
)

// EligibilityOracle asks the external dealer registry about one customer
type EligibilityOracle interface {
	Lookup(ctx context.Context, userID int64, phoneDigits string) (fulfillment.DealerVerdict, error)
}

// DealerCache serves per-customer dealer verdicts with a freshness TTL.
// Lookup failures fall back to the last stored verdict and then to the
// configured default. A nil oracle means the integration is not configured.
type DealerCache struct {
	oracle   EligibilityOracle
	store    VerdictStore
	ttl      time.Duration
	timeout  time.Duration
	failOpen bool
	logger   *zap.Logger
	observe  RefreshObserver
	now      func() time.Time
}

// DealerOption configures a DealerCache
type DealerOption func(*DealerCache)

// WithDealerLogger sets the logger
func WithDealerLogger(logger *zap.Logger) DealerOption {
	return func(c *DealerCache) {
		c.logger = logger
	}
}

// WithDealerObserver registers a lookup observer
func WithDealerObserver(fn RefreshObserver) DealerOption {
	return func(c *DealerCache) {
		c.observe = fn
	}
}

// WithDealerClock overrides the time source
func WithDealerClock(now func() time.Time) DealerOption {
	return func(c *DealerCache) {
		c.now = now
	}
}

// NewDealerCache creates the cache. failOpen decides the verdict for a
// customer that was never checked successfully.
func NewDealerCache(oracle EligibilityOracle, store VerdictStore, ttl, timeout time.Duration, failOpen bool, opts ...DealerOption) *DealerCache {
	c := &DealerCache{
		oracle:   oracle,
		store:    store,
		ttl:      ttl,
		timeout:  timeout,
		failOpen: failOpen,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check returns the verdict for userID. A cached verdict younger than the
// TTL is returned without a lookup unless force is set.
func (c *DealerCache) Check(ctx context.Context, userID int64, phone string, force bool) fulfillment.DealerVerdict {
	if c.oracle == nil {
		return fulfillment.DefaultVerdict(c.failOpen)
	}

	cached, hasCached := c.cached(ctx, userID)
	if !force && hasCached && c.now().Sub(cached.CheckedAt) < c.ttl {
		return cached
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	verdict, err := c.oracle.Lookup(lookupCtx, userID, fulfillment.DigitsOnly(phone))
	if c.observe != nil {
		c.observe("dealer", err)
	}
	if err != nil {
		c.logger.Warn("Dealer lookup failed",
			zap.Int64("user_id", userID),
			zap.Bool("has_cached", hasCached),
			zap.Error(err),
		)
		if hasCached {
			return cached
		}
		return fulfillment.DefaultVerdict(c.failOpen)
	}

	verdict.CheckedAt = c.now()
	if err := c.store.Set(ctx, userID, verdict); err != nil {
		c.logger.Warn("Failed to store dealer verdict", zap.Int64("user_id", userID), zap.Error(err))
	}
	if !verdict.IsActive {
		c.logger.Info("Dealer inactive",
			zap.Int64("user_id", userID),
			zap.Bool("is_dealer", verdict.IsDealer),
			zap.String("status", verdict.Status),
		)
	}
	return verdict
}

// IsActive reads the cache only and never calls the oracle
func (c *DealerCache) IsActive(ctx context.Context, userID int64) bool {
	if c.oracle == nil {
		return c.failOpen
	}
	if v, ok := c.cached(ctx, userID); ok {
		return v.IsActive
	}
	return c.failOpen
}

func (c *DealerCache) cached(ctx context.Context, userID int64) (fulfillment.DealerVerdict, bool) {
	v, ok, err := c.store.Get(ctx, userID)
	if err != nil {
		c.logger.Warn("Failed to read dealer verdict", zap.Int64("user_id", userID), zap.Error(err))
		return fulfillment.DealerVerdict{}, false
	}
	return v, ok
}
