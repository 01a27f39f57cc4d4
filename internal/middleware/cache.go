package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/config"
)

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
    Status      int    `json:"s"`
    ContentType string `json:"ct"`
    Body        []byte `json:"b"`
}

// teeWriter forwards the response to the client and keeps a copy of the
// body until it grows past limit.
type teeWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// generation returns the current cache generation; a missing counter is 0.
func generation(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig) (int64, error) {
    gen, err := rdb.Get(ctx, cfg.Prefix+":gen").Int64()
    if err == redis.Nil {
        return 0, nil
    }
    return gen, err
}

// entryKey keys an entry by generation, method, path and query.  Listings
// do not depend on who asks, so the caller is not part of the key.
func entryKey(cfg config.CacheConfig, gen int64, r *http.Request) string {
    sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
    return cfg.Prefix + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:16])
}

// NewRedisCache caches 200 responses of the configured methods.  Entries
// belong to the current generation; InvalidateCache bumps it.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Entry) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[strings.ToUpper(req.Method)] {
                return next(c)
            }
            gen, err := generation(req.Context(), rdb, cfg)
            if err != nil {
                log.WithError(err).Warn("cache: read generation failed")
                return next(c)
            }
            key := entryKey(cfg, gen, req)

            if bs, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(bs, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            }

            tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = tw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if tw.status != http.StatusOK || tw.overflow {
                return nil
            }
            entry, err := json.Marshal(cachedResponse{
                Status:      tw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        tw.buf.Bytes(),
            })
            if err != nil {
                return nil
            }
            if err := rdb.Set(context.WithoutCancel(req.Context()), key, entry, ttl).Err(); err != nil {
                log.WithError(err).Warn("cache: store failed")
            }
            return nil
        }
    }
}

// InvalidateCache bumps the cache generation after every successful
// mutating request, so no cached listing predates the write.
func InvalidateCache(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Entry) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            err := next(c)
            switch c.Request().Method {
            case http.MethodGet, http.MethodHead, http.MethodOptions:
                return err
            }
            if err != nil || c.Response().Status >= http.StatusBadRequest {
                return err
            }
            if ierr := rdb.Incr(context.WithoutCancel(c.Request().Context()), cfg.Prefix+":gen").Err(); ierr != nil {
                log.WithError(ierr).Warn("cache: bump generation failed")
            }
            return err
        }
    }
}
