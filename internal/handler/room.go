package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/service"
)

// RoomHandler serves room creation, updates and search.
type RoomHandler struct {
    Base
    Rooms        *service.RoomService
    Reservations *service.ReservationService
}

func NewRoomHandler(rooms *service.RoomService, reservations *service.ReservationService, b Base) *RoomHandler {
    return &RoomHandler{Base: b, Rooms: rooms, Reservations: reservations}
}

type createRoomReq struct {
    Name     string `json:"name" validate:"required,max=120"`
    Price    int64  `json:"price" validate:"gte=0"`
    Capacity int    `json:"capacity" validate:"gte=1"`
    Status   string `json:"status"`
}

// updateRoomReq uses pointers so absent fields stay untouched.
type updateRoomReq struct {
    Name     *string `json:"name" validate:"omitempty,max=120"`
    Price    *int64  `json:"price"`
    Capacity *int    `json:"capacity"`
    Status   *string `json:"status"`
}

// CreateRoom registers a room owned by the caller.
func (h *RoomHandler) CreateRoom(c echo.Context) error {
    p, ok := principal(c)
    if !ok {
        return unauthorized(c)
    }
    var req createRoomReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    room, err := h.Rooms.Create(ctx, p, service.RoomInput{
        Name:     req.Name,
        Price:    req.Price,
        Capacity: req.Capacity,
        Status:   model.RoomStatus(strings.ToUpper(req.Status)),
    })
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, room)
}

// UpdateRoom applies a partial update.  Only the owner or an admin may do it.
func (h *RoomHandler) UpdateRoom(c echo.Context) error {
    p, ok := principal(c)
    if !ok {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid room id")
    }
    var req updateRoomReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    patch := model.RoomPatch{Name: req.Name, Price: req.Price, Capacity: req.Capacity}
    if req.Status != nil {
        st := model.RoomStatus(strings.ToUpper(*req.Status))
        patch.Status = &st
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    room, err := h.Rooms.Update(ctx, p, id, patch)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, room)
}

// ListRooms returns ACTIVE rooms filtered by the query string:
// price_min, price_max, capacity_min, capacity_max and an optional
// check_in/check_out availability window.
func (h *RoomHandler) ListRooms(c echo.Context) error {
    p, ok := principal(c)
    if !ok {
        return unauthorized(c)
    }
    f, msg := parseRoomFilter(c)
    if msg != "" {
        return badRequest(c, msg)
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    rooms, err := h.Rooms.List(ctx, p, f)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": rooms, "count": len(rooms)})
}

// RoomReservations lists every reservation of a room for its owner.
func (h *RoomHandler) RoomReservations(c echo.Context) error {
    p, ok := principal(c)
    if !ok {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid room id")
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    items, err := h.Reservations.ListForRoom(ctx, p, id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// parseRoomFilter reads the listing query.  It returns a non-empty
// message for malformed input.
func parseRoomFilter(c echo.Context) (model.RoomFilter, string) {
    var f model.RoomFilter
    for _, b := range []struct {
        key string
        dst **int64
    }{{"price_min", &f.PriceMin}, {"price_max", &f.PriceMax}} {
        if v := strings.TrimSpace(c.QueryParam(b.key)); v != "" {
            n, err := strconv.ParseInt(v, 10, 64)
            if err != nil {
                return f, b.key + " must be an integer"
            }
            *b.dst = &n
        }
    }
    for _, b := range []struct {
        key string
        dst **int
    }{{"capacity_min", &f.CapacityMin}, {"capacity_max", &f.CapacityMax}} {
        if v := strings.TrimSpace(c.QueryParam(b.key)); v != "" {
            n, err := strconv.Atoi(v)
            if err != nil {
                return f, b.key + " must be an integer"
            }
            *b.dst = &n
        }
    }

    in, out := strings.TrimSpace(c.QueryParam("check_in")), strings.TrimSpace(c.QueryParam("check_out"))
    if in == "" && out == "" {
        return f, ""
    }
    if in == "" || out == "" {
        return f, "check_in and check_out must be given together"
    }
    start, err := parseInstant(in)
    if err != nil {
        return f, "check_in must be RFC3339 or YYYY-MM-DD"
    }
    end, err := parseInstant(out)
    if err != nil {
        return f, "check_out must be RFC3339 or YYYY-MM-DD"
    }
    f.Window = &model.Interval{Start: start, End: end}
    return f, ""
}
