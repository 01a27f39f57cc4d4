package middleware

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/config"
)

// takeScript refills the bucket at KEYS[1] by whole intervals elapsed and
// takes one token.  ARGV: now_ms, capacity, refill, interval_ms, ttl_ms.
// Returns {allowed, remaining, retry_after_ms}.
var takeScript = redis.NewScript(`
local now, cap, refill, step, ttl =
    tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 't', 'ts')
local tokens, ts = tonumber(b[1]), tonumber(b[2])
if not tokens then
    tokens, ts = cap, now
end
local n = math.floor(math.max(0, now - ts) / step)
if n > 0 then
    tokens = math.min(cap, tokens + n * refill)
    ts = ts + n * step
end
local ok, wait = 0, 0
if tokens >= 1 then
    ok, tokens = 1, tokens - 1
else
    wait = math.max(0, step - (now - ts))
end
redis.call('HSET', KEYS[1], 't', tokens, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

// bucket is the outcome of one take.
type bucket struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucket, error) {
    res, err := takeScript.Run(ctx, rdb, []string{key},
        time.Now().UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        cfg.TTL.Milliseconds(),
    ).Int64Slice()
    if err != nil {
        return bucket{}, err
    }
    if len(res) != 3 {
        return bucket{}, redis.Nil
    }
    return bucket{allowed: res[0] == 1, remaining: res[1], retry: time.Duration(res[2]) * time.Millisecond}, nil
}

// NewTokenBucket limits requests per key with a Redis token bucket.
// Redis errors fail open: the request is served and the error logged.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *logrus.Entry) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            b, err := take(c.Request().Context(), rdb, cfg, key)
            if err != nil {
                log.WithError(err).WithField("key", key).Warn("ratelimit: redis error")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(b.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if b.allowed {
                return next(c)
            }

            secs := int((b.retry + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                log.WithFields(logrus.Fields{"key": key, "retry": b.retry}).Info("ratelimit: blocked")
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "code":        "too_many_requests",
                "retry_after": secs,
            })
        }
    }
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// rateKeyParts maps a key strategy to the request attributes it combines.
var rateKeyParts = map[string][]string{
    "ip":         {"ip"},
    "user":       {"user"},
    "route":      {"route"},
    "ip_user":    {"ip", "user"},
    "ip_route":   {"ip", "route"},
    "user_route": {"user", "route"},
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts, ok := rateKeyParts[strings.ToLower(cfg.KeyStrategy)]
    if !ok {
        parts = []string{"ip", "user", "route"}
    }
    key := []string{cfg.Prefix}
    for _, p := range parts {
        switch p {
        case "ip":
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            key = append(key, "ip", ip)
        case "user":
            key = append(key, "user", userID(c))
        case "route":
            key = append(key, "route", c.Request().Method+" "+c.Path())
        }
    }
    return strings.Join(key, ":")
}
