package guard

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still carries our token, so
// a holder whose lease expired cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker is a Locker shared by every process talking to the same
// Redis.  Locks are leases: a holder that dies releases its rooms after
// TTL.  TTL must comfortably exceed the longest booking transaction.
type RedisLocker struct {
    rdb    *redis.Client
    prefix string
    ttl    time.Duration
    poll   time.Duration
}

// NewRedisLocker builds a RedisLocker.  Zero ttl or poll fall back to
// 10s and 25ms.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl, poll time.Duration) *RedisLocker {
    if ttl <= 0 {
        ttl = 10 * time.Second
    }
    if poll <= 0 {
        poll = 25 * time.Millisecond
    }
    if prefix == "" {
        prefix = "lock"
    }
    return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, poll: poll}
}

// Lock polls SET NX until it wins or ctx is done.  Redis errors are
// returned as-is: they are infrastructure failures, not contention.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
    full := l.prefix + ":" + key
    token := uuid.NewString()
    ticker := time.NewTicker(l.poll)
    defer ticker.Stop()
    for {
        ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
        if err != nil {
            if ctx.Err() != nil {
                return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
            }
            return nil, fmt.Errorf("redis lock %s: %w", key, err)
        }
        if ok {
            break
        }
        select {
        case <-ctx.Done():
            return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
        case <-ticker.C:
        }
    }
    var once sync.Once
    return func() {
        once.Do(func() {
            // Release even when the request context is already cancelled.
            rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            _ = releaseScript.Run(rctx, l.rdb, []string{full}, token).Err()
        })
    }, nil
}
