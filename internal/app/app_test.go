package app

import (
    "context"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/sirupsen/logrus"
    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/room-reservation/internal/config"
)

func quietLog() *logrus.Entry {
    l := logrus.New()
    l.Out = io.Discard
    return logrus.NewEntry(l)
}

func testConfig(t *testing.T) config.Config {
    t.Helper()
    cfg, err := config.LoadFrom(func(k string) string {
        switch k {
        case "JWT_SECRET":
            return "secret"
        case "REDIS_ADDR":
            return ""
        case "ADMIN_EMAIL":
            return "admin@example.com"
        case "ADMIN_PASSWORD":
            return "admin-pass"
        }
        return ""
    })
    if err != nil {
        t.Fatal(err)
    }
    cfg.Redis.Addr = ""
    cfg.BcryptCost = bcrypt.MinCost
    return cfg
}

func TestNewWithMemoryStore(t *testing.T) {
    ctx := context.Background()
    a, err := New(ctx, testConfig(t), quietLog())
    if err != nil {
        t.Fatal(err)
    }
    defer a.Close()

    if a.DB != nil || a.Redis != nil {
        t.Fatalf("expected no external connections")
    }
    if err := a.Bootstrap(ctx); err != nil {
        t.Fatal(err)
    }
    // idempotent
    if err := a.Bootstrap(ctx); err != nil {
        t.Fatal(err)
    }
    users, _ := a.Users.ListUsers(ctx)
    if len(users) != 1 || users[0].Role != "ADMIN" {
        t.Fatalf("unexpected users %+v", users)
    }

    e := a.Echo()
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"service":"room-reservation"`) {
        t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
    }
    if rec.Header().Get("X-Request-Id") == "" {
        t.Fatal("request id not set")
    }
}

func TestRedisLockBackend(t *testing.T) {
    cfg := testConfig(t)
    cfg.LockBackend = "redis"
    if _, err := New(context.Background(), cfg, quietLog()); err == nil {
        t.Fatal("redis lock backend without redis should fail")
    }

    mr := miniredis.RunT(t)
    cfg.Redis.Addr = mr.Addr()
    a, err := New(context.Background(), cfg, quietLog())
    if err != nil {
        t.Fatal(err)
    }
    defer a.Close()
    if a.Redis == nil {
        t.Fatal("redis client not connected")
    }
}

func TestServeStopsOnCancel(t *testing.T) {
    cfg := testConfig(t)
    cfg.Port = "0"
    a, err := New(context.Background(), cfg, quietLog())
    if err != nil {
        t.Fatal(err)
    }
    defer a.Close()

    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan error, 1)
    go func() { done <- a.Serve(ctx, a.Echo()) }()
    time.Sleep(50 * time.Millisecond)
    cancel()
    select {
    case err := <-done:
        if err != nil {
            t.Fatalf("serve: %v", err)
        }
    case <-time.After(5 * time.Second):
        t.Fatal("server did not stop")
    }
}

func TestSeedIsIdempotent(t *testing.T) {
    ctx := context.Background()
    a, err := New(ctx, testConfig(t), quietLog())
    if err != nil {
        t.Fatal(err)
    }
    defer a.Close()

    now := time.Date(2025, time.December, 1, 12, 0, 0, 0, time.UTC)
    for i := 0; i < 2; i++ {
        if err := a.Seed(ctx, now); err != nil {
            t.Fatalf("seed run %d: %v", i+1, err)
        }
    }

    users, _ := a.Users.ListUsers(ctx)
    rooms, _ := a.Store.ListAllRooms(ctx)
    res, _ := a.Store.ListAllReservations(ctx)
    if len(users) != 3 || len(rooms) != 2 || len(res) != 1 {
        t.Fatalf("got %d users, %d rooms, %d reservations", len(users), len(rooms), len(res))
    }
    if rooms[0].Name != "Deluxe Room" || res[0].RoomID != rooms[0].ID || res[0].Status != "CONFIRMED" {
        t.Fatalf("unexpected seed data %+v %+v", rooms, res)
    }
}
