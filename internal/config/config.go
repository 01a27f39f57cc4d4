package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env     string // application environment (e.g. "dev", "prod")
    Port    string // HTTP port to listen on
    Version string // reported by the health endpoint

    // MySQL.  An empty DBHost selects the in-memory store.
    DBUser string
    DBPass string
    DBHost string
    DBPort string
    DBName string

    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    LogLevel  string // logrus level name
    LogFormat string // "json" or "text"
    LogFile   string // rotated log file; empty logs to stderr

    AMQPURL      string // empty disables event publishing
    AuditLogPath string // where cmd/worker appends reservation events

    LockBackend    string        // "local" or "redis"
    LockTTL        time.Duration // lease of a redis room lock
    LockWait       time.Duration // how long a booking queues for its room
    RequestTimeout time.Duration // per-request context deadline

    AdminEmail    string // bootstrap ADMIN account, created at startup when set
    AdminPassword string

    Redis     RedisConfig
    RateLimit RateLimitConfig
    Cache     CacheConfig
}

// UseMySQL reports whether a database is configured.
func (c Config) UseMySQL() bool { return c.DBHost != "" }

// Load reads a .env file from the working directory when one exists and
// then builds the Config from the process environment.
func Load() (Config, error) {
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        return Config{}, fmt.Errorf("load .env: %w", err)
    }
    return LoadFrom(os.Getenv)
}

// LoadFrom builds the Config from getenv.  Every missing required
// variable is reported in one error.
func LoadFrom(getenv func(string) string) (Config, error) {
    e := env{get: getenv}
    cfg := Config{
        Env:     e.str("APP_ENV", "dev"),
        Port:    e.str("APP_PORT", "8080"),
        Version: e.str("APP_VERSION", "dev"),

        DBHost: e.str("DB_HOST", ""),
        DBPort: e.str("DB_PORT", "3306"),
        DBPass: e.str("DB_PASS", ""),

        JWTSecret:      e.must("JWT_SECRET"),
        AccessTTLMin:   e.int("ACCESS_TOKEN_TTL_MIN", 15),
        RefreshTTLDays: e.int("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:     e.int("BCRYPT_COST", 10),

        LogLevel:  e.str("LOG_LEVEL", "info"),
        LogFormat: strings.ToLower(e.str("LOG_FORMAT", "json")),
        LogFile:   e.str("LOG_FILE", ""),

        AMQPURL:      e.str("RABBITMQ_URL", e.str("AMQP_URL", "")),
        AuditLogPath: e.str("AUDIT_LOG_PATH", "logs/reservations.log"),

        LockBackend:    strings.ToLower(e.str("LOCK_BACKEND", "local")),
        LockTTL:        e.dur("LOCK_TTL", 10*time.Second),
        LockWait:       e.dur("LOCK_WAIT", 5*time.Second),
        RequestTimeout: e.dur("REQUEST_TIMEOUT", 10*time.Second),

        AdminEmail:    e.str("ADMIN_EMAIL", ""),
        AdminPassword: e.str("ADMIN_PASSWORD", ""),

        Redis:     loadRedisConfig(&e),
        RateLimit: loadRateLimitConfig(&e),
        Cache:     loadCacheConfig(&e),
    }
    if cfg.UseMySQL() {
        cfg.DBUser = e.must("DB_USER")
        cfg.DBName = e.must("DB_NAME")
    }
    if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
        e.missing = append(e.missing, "ADMIN_PASSWORD")
    }
    switch cfg.LockBackend {
    case "local", "redis":
    default:
        e.invalid = append(e.invalid, "LOCK_BACKEND")
    }
    switch cfg.LogFormat {
    case "json", "text":
    default:
        e.invalid = append(e.invalid, "LOG_FORMAT")
    }
    if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
        e.invalid = append(e.invalid, "BCRYPT_COST")
    }
    if err := e.err(); err != nil {
        return Config{}, err
    }
    return cfg, nil
}
