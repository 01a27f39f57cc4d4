package config

import (
    "fmt"
    "strconv"
    "strings"
    "time"
)

// env reads typed values through a getenv function and remembers every
// required key that was missing and every value that failed to parse.
type env struct {
    get     func(string) string
    missing []string
    invalid []string
}

func (e *env) str(k, d string) string {
    if v := strings.TrimSpace(e.get(k)); v != "" {
        return v
    }
    return d
}

func (e *env) must(k string) string {
    v := strings.TrimSpace(e.get(k))
    if v == "" {
        e.missing = append(e.missing, k)
    }
    return v
}

func (e *env) int(k string, d int) int {
    v := strings.TrimSpace(e.get(k))
    if v == "" {
        return d
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        e.invalid = append(e.invalid, k)
        return d
    }
    return n
}

func (e *env) bool(k string, d bool) bool {
    switch strings.ToLower(strings.TrimSpace(e.get(k))) {
    case "":
        return d
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    e.invalid = append(e.invalid, k)
    return d
}

func (e *env) dur(k string, d time.Duration) time.Duration {
    v := strings.TrimSpace(e.get(k))
    if v == "" {
        return d
    }
    dur, err := time.ParseDuration(v)
    if err != nil {
        e.invalid = append(e.invalid, k)
        return d
    }
    return dur
}

func (e *env) err() error {
    var parts []string
    if len(e.missing) > 0 {
        parts = append(parts, "missing required env vars: "+strings.Join(e.missing, ", "))
    }
    if len(e.invalid) > 0 {
        parts = append(parts, "invalid env vars: "+strings.Join(e.invalid, ", "))
    }
    if len(parts) == 0 {
        return nil
    }
    return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}
