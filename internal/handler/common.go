package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/middleware"
    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/service"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct{ v *validator.Validate }

func NewRequestValidator() *RequestValidator { return &RequestValidator{v: validator.New()} }

func (r *RequestValidator) Validate(i interface{}) error { return r.v.Struct(i) }

// Base carries what every handler needs: a per-request timeout and a
// logger for unexpected failures.
type Base struct {
    Timeout time.Duration
    Log     *logrus.Entry
}

func NewBase(timeout time.Duration, log *logrus.Entry) Base {
    if log == nil {
        log = logrus.NewEntry(logrus.StandardLogger())
    }
    return Base{Timeout: timeout, Log: log}
}

func (b Base) ctx(c echo.Context) (context.Context, context.CancelFunc) {
    if b.Timeout <= 0 {
        return context.WithCancel(c.Request().Context())
    }
    return context.WithTimeout(c.Request().Context(), b.Timeout)
}

// bind decodes and validates the body into req.  On failure it writes the
// 400 response and returns false.
func bind(c echo.Context, req interface{}) (bool, error) {
    if err := c.Bind(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "validation"})
    }
    if err := c.Validate(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": describe(err), "code": "validation"})
    }
    return true, nil
}

func describe(err error) string {
    var ves validator.ValidationErrors
    if !errors.As(err, &ves) {
        return err.Error()
    }
    parts := make([]string, 0, len(ves))
    for _, fe := range ves {
        if fe.Param() != "" {
            parts = append(parts, fmt.Sprintf("%s: %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
        } else {
            parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
        }
    }
    return strings.Join(parts, "; ")
}

// fail maps a service error onto the HTTP response.
func (b Base) fail(c echo.Context, err error) error {
    status, code := http.StatusInternalServerError, "internal"
    switch {
    case errors.Is(err, service.ErrValidation):
        status, code = http.StatusBadRequest, "validation"
    case errors.Is(err, service.ErrNotFound):
        status, code = http.StatusNotFound, "not_found"
    case errors.Is(err, service.ErrForbidden):
        status, code = http.StatusForbidden, "forbidden"
    case errors.Is(err, service.ErrConflict):
        status, code = http.StatusConflict, "conflict"
    case errors.Is(err, service.ErrInvalidState):
        status, code = http.StatusConflict, "invalid_state"
    case errors.Is(err, service.ErrUnauthenticated):
        status, code = http.StatusUnauthorized, "unauthenticated"
    }
    if status == http.StatusInternalServerError {
        b.Log.WithError(err).WithFields(logrus.Fields{
            "method": c.Request().Method,
            "path":   c.Path(),
        }).Error("request failed")
        return c.JSON(status, echo.Map{"error": "internal error", "code": code})
    }
    msg := service.Message(err)
    if msg == "" {
        msg = err.Error()
    }
    return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// principal returns the caller set by the JWT middleware.
func principal(c echo.Context) (model.Principal, bool) {
    return middleware.PrincipalFrom(c)
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "unauthenticated"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "validation"})
}

func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// parseInstant accepts RFC3339 timestamps and bare dates (midnight UTC).
func parseInstant(s string) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t.UTC(), nil
    }
    return time.Parse(time.DateOnly, s)
}
