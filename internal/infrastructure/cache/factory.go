package cache

import (
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// VerdictStoreFactory creates verdict stores based on configuration
type VerdictStoreFactory struct {
	redisConfig           config.RedisConfig
	retention             time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// VerdictStoreFactoryOption is a functional option for configuring the factory
type VerdictStoreFactoryOption func(*VerdictStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) VerdictStoreFactoryOption {
	return func(f *VerdictStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Default is true.
func WithInMemoryFallback(allow bool) VerdictStoreFactoryOption {
	return func(f *VerdictStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithRetention sets how long verdicts are kept for stale serving
func WithRetention(d time.Duration) VerdictStoreFactoryOption {
	return func(f *VerdictStoreFactory) {
		f.retention = d
	}
}

// NewVerdictStoreFactory creates a new factory
func NewVerdictStoreFactory(cfg config.RedisConfig, opts ...VerdictStoreFactoryOption) *VerdictStoreFactory {
	f := &VerdictStoreFactory{
		redisConfig:           cfg,
		retention:             DefaultVerdictRetention,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise the in-memory store
func (f *VerdictStoreFactory) CreateStore() (VerdictStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory dealer verdict store")
		return NewInMemoryVerdictStore(f.retention), nil
	}

	store, err := NewRedisVerdictStore(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.retention)
	if err == nil {
		f.logger.Info("Using Redis dealer verdict store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for dealer verdicts but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory dealer verdict store",
		zap.Error(err),
	)
	return NewInMemoryVerdictStore(f.retention), nil
}
