package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/room-reservation/internal/service"
)

// AdminHandler serves the unfiltered admin listings.
type AdminHandler struct {
    Base
    Admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService, b Base) *AdminHandler {
    return &AdminHandler{Base: b, Admin: admin}
}

func (h *AdminHandler) Users(c echo.Context) error {
    p, ok := principal(c)
    if !ok {
        return unauthorized(c)
    }
    ctx, cancel := h.ctx(c)
    defer cancel()
    items, err := h.Admin.Users(ctx, p)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

func (h *AdminHandler) Rooms(c echo.Context) error {
    p, ok := principal(c)
    if !ok {
        return unauthorized(c)
    }
    ctx, cancel := h.ctx(c)
    defer cancel()
    items, err := h.Admin.Rooms(ctx, p)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

func (h *AdminHandler) Reservations(c echo.Context) error {
    p, ok := principal(c)
    if !ok {
        return unauthorized(c)
    }
    ctx, cancel := h.ctx(c)
    defer cancel()
    items, err := h.Admin.Reservations(ctx, p)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}
