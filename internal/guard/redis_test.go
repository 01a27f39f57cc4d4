package guard

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func TestRedisLockerMutualExclusion(t *testing.T) {
    mr, rdb := newTestRedis(t)
    a := NewRedisLocker(rdb, "lock", 5*time.Second, 5*time.Millisecond)
    b := NewRedisLocker(rdb, "lock", 5*time.Second, 5*time.Millisecond)

    unlock, err := a.Lock(context.Background(), RoomKey(1))
    if err != nil {
        t.Fatal(err)
    }
    if !mr.Exists("lock:room:1") {
        t.Fatalf("lock key not written")
    }

    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
    defer cancel()
    if _, err := b.Lock(ctx, RoomKey(1)); !errors.Is(err, ErrLockTimeout) {
        t.Fatalf("got %v, want ErrLockTimeout", err)
    }

    other, err := b.Lock(context.Background(), RoomKey(2))
    if err != nil {
        t.Fatalf("distinct room blocked: %v", err)
    }
    other()

    unlock()
    if mr.Exists("lock:room:1") {
        t.Fatalf("lock key not released")
    }
    again, err := b.Lock(context.Background(), RoomKey(1))
    if err != nil {
        t.Fatalf("lock after release: %v", err)
    }
    again()
}

func TestRedisLockerDoesNotReleaseForeignLease(t *testing.T) {
    mr, rdb := newTestRedis(t)
    a := NewRedisLocker(rdb, "lock", time.Second, 5*time.Millisecond)
    b := NewRedisLocker(rdb, "lock", time.Minute, 5*time.Millisecond)

    staleUnlock, err := a.Lock(context.Background(), RoomKey(7))
    if err != nil {
        t.Fatal(err)
    }
    mr.FastForward(2 * time.Second)

    unlock, err := b.Lock(context.Background(), RoomKey(7))
    if err != nil {
        t.Fatalf("lock after lease expiry: %v", err)
    }
    staleUnlock()
    if !mr.Exists("lock:room:7") {
        t.Fatalf("expired holder released the new holder's lock")
    }
    unlock()
    if mr.Exists("lock:room:7") {
        t.Fatalf("lock key not released")
    }
}
