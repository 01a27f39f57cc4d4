package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// HealthHandler answers liveness probes from load balancers and
// monitoring.
type HealthHandler struct {
    Service string
    Version string
    Started time.Time
}

func NewHealthHandler(service, version string) *HealthHandler {
    return &HealthHandler{Service: service, Version: version, Started: time.Now()}
}

// Healthz is the bare probe: plain "ok" with 200.
func (h *HealthHandler) Healthz(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Health reports status, version and uptime.
func (h *HealthHandler) Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "status":  "ok",
        "service": h.Service,
        "version": h.Version,
        "uptime":  time.Since(h.Started).Round(time.Second).String(),
    })
}
