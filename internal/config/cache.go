package config

import "time"

// CacheConfig defines settings for the response cache middleware that sits
// in front of the public taxonomy reads (genres, regions, recipe types).
// When Enabled is false or no Redis client is configured, caching is off.
// Writes to a taxonomy invalidate every key under Prefix for that route group.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // HTTP methods that may be served from cache
    TTL          time.Duration   // lifetime of a cached response
    KeyStrategy  string          // route_query | route
    Prefix       string          // Redis key namespace
    MaxBodyBytes int             // larger responses are never cached
}

// LoadCacheConfig reads CACHE_* variables.  Defaults suit lookup tables
// that change rarely.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "contenthub:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Minute
    }
    if cfg.MaxBodyBytes <= 0 {
        cfg.MaxBodyBytes = 1 << 20
    }
    return cfg
}
