package cache

import "github.com/erp/fulfillment/internal/infrastructure/config"

func configRedis(enabled bool) config.RedisConfig {
	return config.RedisConfig{Enabled: enabled, Host: "127.0.0.1", Port: 6379}
}
