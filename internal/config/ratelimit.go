package config

import "time"

type RateLimitConfig struct {
	Enabled        bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Capacity       int           `envconfig:"RATE_LIMIT_CAPACITY" default:"60"`
	RefillTokens   int           `envconfig:"RATE_LIMIT_REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	TTL            time.Duration `envconfig:"RATE_LIMIT_TTL" default:"10m"`
	KeyStrategy    string        `envconfig:"RATE_LIMIT_KEY_STRATEGY" default:"ip_user_route"`
	Prefix         string        `envconfig:"RATE_LIMIT_PREFIX" default:"rl"`
	Debug          bool          `envconfig:"RATE_LIMIT_DEBUG" default:"false"`

	// Shorthands: BURST overrides Capacity, REFILL_EVERY means one token per period.
	Burst       int           `envconfig:"RATE_LIMIT_BURST" default:"-1"`
	RefillEvery time.Duration `envconfig:"RATE_LIMIT_REFILL_EVERY" default:"0"`
}

func (rl RateLimitConfig) normalize() RateLimitConfig {
	if rl.Burst > 0 {
		rl.Capacity = rl.Burst
	}
	if rl.RefillEvery > 0 {
		rl.RefillTokens = 1
		rl.RefillInterval = rl.RefillEvery
	}
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}
