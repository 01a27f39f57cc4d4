package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/policy"
    "github.com/iliyamo/room-reservation/internal/repository"
)

// RoomInput is the data needed to create a room.  An empty Status means
// ACTIVE.
type RoomInput struct {
    Name     string
    Price    int64
    Capacity int
    Status   model.RoomStatus
}

// RoomService is the resource registry: it creates, updates and lists
// rooms.
type RoomService struct {
    store repository.Store
    log   *logrus.Entry
}

func NewRoomService(store repository.Store, log *logrus.Entry) *RoomService {
    return &RoomService{store: store, log: log.WithField("component", "rooms")}
}

// Create persists a new room owned by p.
func (s *RoomService) Create(ctx context.Context, p model.Principal, in RoomInput) (model.Room, error) {
    if !policy.Allowed(policy.Request{Op: policy.CreateRoom, Principal: p}) {
        return model.Room{}, forbidden("role %s may not create rooms", p.Role)
    }
    if in.Status == "" {
        in.Status = model.RoomActive
    }
    room := model.Room{
        OwnerID:  p.ID,
        Name:     strings.TrimSpace(in.Name),
        Price:    in.Price,
        Capacity: in.Capacity,
        Status:   in.Status,
    }
    if err := room.Validate(); err != nil {
        return model.Room{}, validation("%s", err)
    }
    if err := s.store.CreateRoom(ctx, &room); err != nil {
        return model.Room{}, fmt.Errorf("create room: %w", err)
    }
    s.log.WithFields(logrus.Fields{"room_id": room.ID, "owner_id": room.OwnerID}).Info("room created")
    return room, nil
}

// Update applies patch to the room.  Checks run in the order existence,
// ownership, field validation.  An empty patch returns the current record.
func (s *RoomService) Update(ctx context.Context, p model.Principal, id uint64, patch model.RoomPatch) (model.Room, error) {
    var updated model.Room
    err := s.store.InTx(ctx, func(q repository.Queries) error {
        room, err := q.LockRoom(ctx, id)
        if errors.Is(err, repository.ErrNotFound) {
            return notFound("room %d not found", id)
        }
        if err != nil {
            return fmt.Errorf("load room: %w", err)
        }
        if !policy.Allowed(policy.Request{Op: policy.UpdateRoom, Principal: p, OwnerID: room.OwnerID}) {
            return forbidden("room %d belongs to another owner", id)
        }
        if patch.Empty() {
            updated = room
            return nil
        }
        if err := patch.Apply(room).Validate(); err != nil {
            return validation("%s", err)
        }
        updated, err = q.UpdateRoom(ctx, id, patch)
        if err != nil {
            return fmt.Errorf("update room: %w", err)
        }
        return nil
    })
    if err != nil {
        return model.Room{}, storeErr(err)
    }
    s.log.WithField("room_id", id).Debug("room updated")
    return updated, nil
}

// List returns ACTIVE rooms matching f.  Bounds must be non-negative and
// ordered; a window must start before it ends.
func (s *RoomService) List(ctx context.Context, p model.Principal, f model.RoomFilter) ([]model.Room, error) {
    if !policy.Allowed(policy.Request{Op: policy.ListRooms, Principal: p}) {
        return nil, forbidden("authentication required")
    }
    if err := validateFilter(f); err != nil {
        return nil, err
    }
    rooms, err := s.store.ListRooms(ctx, f)
    if err != nil {
        return nil, fmt.Errorf("list rooms: %w", err)
    }
    return rooms, nil
}

// ListAll returns every room in any status.  Admin only.
func (s *RoomService) ListAll(ctx context.Context, p model.Principal) ([]model.Room, error) {
    if !policy.Allowed(policy.Request{Op: policy.AdminList, Principal: p}) {
        return nil, forbidden("admin only")
    }
    rooms, err := s.store.ListAllRooms(ctx)
    if err != nil {
        return nil, fmt.Errorf("list rooms: %w", err)
    }
    return rooms, nil
}

func validateFilter(f model.RoomFilter) error {
    if (f.PriceMin != nil && *f.PriceMin < 0) || (f.PriceMax != nil && *f.PriceMax < 0) {
        return validation("price bounds must be zero or greater")
    }
    if (f.CapacityMin != nil && *f.CapacityMin < 0) || (f.CapacityMax != nil && *f.CapacityMax < 0) {
        return validation("capacity bounds must be zero or greater")
    }
    if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
        return validation("price_min is greater than price_max")
    }
    if f.CapacityMin != nil && f.CapacityMax != nil && *f.CapacityMin > *f.CapacityMax {
        return validation("capacity_min is greater than capacity_max")
    }
    if f.Window != nil && !f.Window.Start.Before(f.Window.End) {
        return validation("%s", model.ErrInvalidInterval)
    }
    return nil
}

// storeErr passes classified errors through and turns transaction aborts
// into conflicts.  Anything else is an infrastructure failure.
func storeErr(err error) error {
    var e *Error
    if errors.As(err, &e) {
        return err
    }
    if errors.Is(err, repository.ErrTxConflict) {
        return conflict("concurrent update, retry")
    }
    if errors.Is(err, repository.ErrCheckViolation) {
        return validation("%s", err)
    }
    return err
}
