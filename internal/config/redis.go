package config

// Redis backs the token denylist, OAuth code markers and the login rate
// limiter. Unlike the rate limiter, the denylist cannot degrade silently, so
// a failed startup ping is returned to the caller instead of being ignored.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds connection settings for the key-value store.
type Redis struct {
	Addr        string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TLS         bool          `yaml:"tls" env:"REDIS_TLS" env-default:"false"`
	RetryBudget time.Duration `yaml:"retry_budget" env:"DENYLIST_RETRY_BUDGET" env-default:"15s"`
}

// NewRedisClient builds a client and pings it with a short timeout.
func NewRedisClient(ctx context.Context, cfg Redis) (*redis.Client, error) {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
