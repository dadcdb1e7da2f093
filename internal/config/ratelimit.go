package config

import "time"

// RateLimitConfig tunes the Redis token bucket placed in front of the
// credential endpoints (login and register).
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Capacity       int           `yaml:"capacity" env:"RATE_LIMIT_CAPACITY" env-default:"10"`
	RefillTokens   int           `yaml:"refill_tokens" env:"RATE_LIMIT_REFILL_TOKENS" env-default:"1"`
	RefillInterval time.Duration `yaml:"refill_interval" env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"6s"`
	TTL            time.Duration `yaml:"ttl" env:"RATE_LIMIT_TTL" env-default:"10m"`
	Prefix         string        `yaml:"prefix" env:"RATE_LIMIT_PREFIX" env-default:"rl"`
}

// Normalized clamps values that would make the bucket useless.
func (c RateLimitConfig) Normalized() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
