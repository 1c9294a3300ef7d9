package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/redis/go-redis/v9"
)

const defaultVerdictKeyPrefix = "dealer:verdict:"

// RedisVerdictStore implements VerdictStore on Redis so verdicts survive a
// restart
type RedisVerdictStore struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisVerdictStore connects to Redis and verifies the connection
func NewRedisVerdictStore(cfg RedisConfig, retention time.Duration) (*RedisVerdictStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisVerdictStoreWithClient(client, "", retention), nil
}

// NewRedisVerdictStoreWithClient creates a store around an existing client
func NewRedisVerdictStoreWithClient(client *redis.Client, keyPrefix string, retention time.Duration) *RedisVerdictStore {
	if keyPrefix == "" {
		keyPrefix = defaultVerdictKeyPrefix
	}
	if retention <= 0 {
		retention = DefaultVerdictRetention
	}
	return &RedisVerdictStore{
		client:    client,
		keyPrefix: keyPrefix,
		retention: retention,
	}
}

func (s *RedisVerdictStore) key(userID int64) string {
	return s.keyPrefix + strconv.FormatInt(userID, 10)
}

// Get reads and decodes the stored verdict
func (s *RedisVerdictStore) Get(ctx context.Context, userID int64) (fulfillment.DealerVerdict, bool, error) {
	var v fulfillment.DealerVerdict
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("failed to read verdict: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode verdict: %w", err)
	}
	return v, true, nil
}

// Set stores the verdict with the retention as Redis expiry
func (s *RedisVerdictStore) Set(ctx context.Context, userID int64, v fulfillment.DealerVerdict) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to write verdict: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisVerdictStore) Close() error {
	return s.client.Close()
}

var _ VerdictStore = (*RedisVerdictStore)(nil)
