package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/service"
)

// ReservationHandler serves booking and cancellation.
type ReservationHandler struct {
	Base
	Reservations *service.ReservationService
}

func NewReservationHandler(reservations *service.ReservationService, b Base) *ReservationHandler {
	return &ReservationHandler{Base: b, Reservations: reservations}
}

type createReservationReq struct {
	RoomID   uint64    `json:"room_id" validate:"required"`
	CheckIn  time.Time `json:"check_in" validate:"required"`
	CheckOut time.Time `json:"check_out" validate:"required"`
}

// CreateReservation books a room for the caller.  Overlapping an existing
// booking yields 409.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	var req createReservationReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.Reservations.Create(ctx, p, req.RoomID, req.CheckIn, req.CheckOut)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// CancelReservation moves a reservation to CANCELLED.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.Reservations.Cancel(ctx, p, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// MyReservations lists the caller's reservations ordered by check-in.
func (h *ReservationHandler) MyReservations(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	items, err := h.Reservations.ListForGuest(ctx, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}
