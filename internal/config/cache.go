package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the room listing cache.  When Enabled is
// false or no Redis client is configured, caching is disabled.  Entries are
// keyed by path and query and carry a generation number that every room or
// reservation write bumps, so a write makes all cached listings stale at
// once.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

func loadCacheConfig(e *env) CacheConfig {
    return CacheConfig{
        Enabled:      e.bool("CACHE_ENABLED", true),
        Methods:      parseMethods(e.str("CACHE_METHODS", "GET")),
        TTL:          e.dur("CACHE_TTL", 30*time.Second),
        Prefix:       e.str("CACHE_PREFIX", "cache"),
        MaxBodyBytes: e.int("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
