package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware and the
// room layout cache.  When Enabled is false or no Redis client is configured,
// both caches are bypassed.  KeyStrategy determines which parts of the
// request contribute to the response cache key.
type CacheConfig struct {
	Enabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	Methods      []string      `envconfig:"CACHE_METHODS" default:"GET"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	KeyStrategy  string        `envconfig:"CACHE_KEY_STRATEGY" default:"route_query"`
	Prefix       string        `envconfig:"CACHE_PREFIX" default:"cache"`
	MaxBodyBytes int           `envconfig:"CACHE_MAX_BODY_BYTES" default:"1048576"`
	LayoutTTL    time.Duration `envconfig:"LAYOUT_CACHE_TTL" default:"10m"`
}

// MethodSet returns the cacheable methods upper-cased for lookups.
func (c CacheConfig) MethodSet() map[string]bool {
	m := make(map[string]bool, len(c.Methods))
	for _, p := range c.Methods {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
