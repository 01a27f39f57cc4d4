// Package app assembles the stores, services and HTTP stack from a
// Config.  The commands under cmd/ share it.
package app

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/config"
    "github.com/iliyamo/room-reservation/internal/database"
    "github.com/iliyamo/room-reservation/internal/guard"
    "github.com/iliyamo/room-reservation/internal/handler"
    "github.com/iliyamo/room-reservation/internal/repository"
    "github.com/iliyamo/room-reservation/internal/router"
    "github.com/iliyamo/room-reservation/internal/service"
)

const serviceName = "room-reservation"

// App is the wired application.
type App struct {
    Cfg   config.Config
    Log   *logrus.Entry
    DB    *sql.DB       // nil with the memory store
    Redis *redis.Client // nil when Redis is unreachable

    Store  repository.Store
    Users  repository.UserStore
    Tokens repository.TokenStore

    Auth         *service.AuthService
    Rooms        *service.RoomService
    Reservations *service.ReservationService
    Admin        *service.AdminService

    closers []func() error
}

// New connects the backing services named by cfg and builds the service
// layer.  MySQL is used when DB_HOST is set, the memory store otherwise.
func New(ctx context.Context, cfg config.Config, log *logrus.Entry) (*App, error) {
    a := &App{Cfg: cfg, Log: log}

    if cfg.UseMySQL() {
        db, err := database.Open(ctx, cfg)
        if err != nil {
            return nil, fmt.Errorf("open database: %w", err)
        }
        a.closers = append(a.closers, db.Close)
        if err := database.Migrate(ctx, db); err != nil {
            _ = a.Close()
            return nil, fmt.Errorf("migrate: %w", err)
        }
        a.DB = db
        a.Store = repository.NewSQLStore(db)
        a.Users = repository.NewUserRepo(db)
        a.Tokens = repository.NewTokenRepo(db)
        log.WithField("host", cfg.DBHost).Info("using mysql store")
    } else {
        mem := repository.NewMemoryStore(nil)
        a.Store, a.Users, a.Tokens = mem, mem, mem
        log.Warn("DB_HOST not set; using in-memory store")
    }

    if cfg.Redis.Addr != "" {
        if a.Redis = config.NewRedisClient(cfg.Redis); a.Redis == nil {
            log.WithField("addr", cfg.Redis.Addr).Warn("redis unreachable; rate limiting and caching disabled")
        } else {
            a.closers = append(a.closers, a.Redis.Close)
        }
    }

    locker, err := a.locker()
    if err != nil {
        _ = a.Close()
        return nil, err
    }

    var events service.EventPublisher = service.NopPublisher{}
    if cfg.AMQPURL != "" {
        pub := service.NewAMQPPublisher(cfg.AMQPURL, log.WithField("component", "publisher"))
        a.closers = append(a.closers, pub.Close)
        events = pub
    }

    a.Auth = service.NewAuthService(a.Users, a.Tokens, service.AuthConfig{
        JWTSecret:      cfg.JWTSecret,
        AccessTTLMin:   cfg.AccessTTLMin,
        RefreshTTLDays: cfg.RefreshTTLDays,
        BcryptCost:     cfg.BcryptCost,
    }, log)
    a.Rooms = service.NewRoomService(a.Store, log)
    a.Reservations = service.NewReservationService(a.Store, locker, events, log, cfg.LockWait)
    a.Admin = service.NewAdminService(a.Users, a.Rooms, a.Reservations)
    return a, nil
}

// locker picks the concurrency guard.  The in-process mutex always runs
// first so one replica never polls Redis against itself.
func (a *App) locker() (guard.Locker, error) {
    local := guard.NewKeyedMutex()
    switch a.Cfg.LockBackend {
    case "redis":
        if a.Redis == nil {
            return nil, fmt.Errorf("LOCK_BACKEND=redis needs a reachable redis")
        }
        return guard.Chain(local, guard.NewRedisLocker(a.Redis, "lock", a.Cfg.LockTTL, 0)), nil
    default:
        return local, nil
    }
}

// Bootstrap creates the configured ADMIN account if it does not exist.
func (a *App) Bootstrap(ctx context.Context) error {
    if a.Cfg.AdminEmail == "" {
        return nil
    }
    if _, err := a.Auth.EnsureAdmin(ctx, a.Cfg.AdminEmail, a.Cfg.AdminPassword); err != nil {
        return fmt.Errorf("bootstrap admin: %w", err)
    }
    return nil
}

// Echo builds the HTTP server with the full route table.
func (a *App) Echo() *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.Validator = handler.NewRequestValidator()

    e.Use(echomw.Recover())
    e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
    e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogError:     true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            entry := a.Log.WithFields(logrus.Fields{
                "method":     v.Method,
                "uri":        v.URI,
                "status":     v.Status,
                "latency_ms": v.Latency.Milliseconds(),
                "request_id": v.RequestID,
            })
            if v.Error != nil {
                entry.WithError(v.Error).Warn("request")
                return nil
            }
            entry.Info("request")
            return nil
        },
    }))

    b := handler.NewBase(a.Cfg.RequestTimeout, a.Log.WithField("component", "http"))
    router.Register(e, router.Handlers{
        Health:       handler.NewHealthHandler(serviceName, a.Cfg.Version),
        Auth:         handler.NewAuthHandler(a.Auth, b),
        Rooms:        handler.NewRoomHandler(a.Rooms, a.Reservations, b),
        Reservations: handler.NewReservationHandler(a.Reservations, b),
        Admin:        handler.NewAdminHandler(a.Admin, b),
    }, router.Options{
        JWTSecret: a.Cfg.JWTSecret,
        Redis:     a.Redis,
        RateLimit: a.Cfg.RateLimit,
        Cache:     a.Cfg.Cache,
        Log:       a.Log,
    })
    return e
}

// Close releases every connection opened by New, newest first.
func (a *App) Close() error {
    var first error
    for i := len(a.closers) - 1; i >= 0; i-- {
        if err := a.closers[i](); err != nil && first == nil {
            first = err
        }
    }
    a.closers = nil
    return first
}

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP server until ctx is done, then drains it.
func (a *App) Serve(ctx context.Context, e *echo.Echo) error {
    errCh := make(chan error, 1)
    go func() {
        a.Log.WithFields(logrus.Fields{"port": a.Cfg.Port, "env": a.Cfg.Env}).Info("listening")
        errCh <- e.Start(":" + a.Cfg.Port)
    }()
    select {
    case err := <-errCh:
        return err
    case <-ctx.Done():
    }
    sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
    defer cancel()
    return e.Shutdown(sctx)
}
