package model

import (
    "errors"
    "strings"
    "time"
)

// RoomStatus toggles whether a room is offered.  Rooms are never deleted;
// INACTIVE is the soft removal.
type RoomStatus string

const (
    RoomActive   RoomStatus = "ACTIVE"
    RoomInactive RoomStatus = "INACTIVE"
)

// Valid reports whether s is ACTIVE or INACTIVE.
func (s RoomStatus) Valid() bool { return s == RoomActive || s == RoomInactive }

var (
    ErrRoomName     = errors.New("name is required")
    ErrRoomPrice    = errors.New("price must be zero or greater")
    ErrRoomCapacity = errors.New("capacity must be at least 1")
    ErrRoomStatus   = errors.New("status must be ACTIVE or INACTIVE")
)

// Room represents a bookable room as stored in the `rooms` table.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – principal that created the room, immutable.
//  Name      – display name, not unique.
//  Price     – non-negative integer price.
//  Capacity  – number of occupants, at least 1.
//  Status    – ACTIVE or INACTIVE.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Room struct {
    ID        uint64     `json:"id"`         // rooms.id
    OwnerID   uint64     `json:"owner_id"`   // rooms.owner_id
    Name      string     `json:"name"`       // rooms.name
    Price     int64      `json:"price"`      // rooms.price
    Capacity  int        `json:"capacity"`   // rooms.capacity
    Status    RoomStatus `json:"status"`     // rooms.status
    CreatedAt time.Time  `json:"created_at"` // rooms.created_at
    UpdatedAt time.Time  `json:"updated_at"` // rooms.updated_at
}

// Validate checks the mutable fields of the room.
func (r Room) Validate() error {
    if strings.TrimSpace(r.Name) == "" {
        return ErrRoomName
    }
    if r.Price < 0 {
        return ErrRoomPrice
    }
    if r.Capacity < 1 {
        return ErrRoomCapacity
    }
    if !r.Status.Valid() {
        return ErrRoomStatus
    }
    return nil
}

// RoomPatch carries the fields of a partial room update.  Nil fields are
// left untouched.
type RoomPatch struct {
    Name     *string
    Price    *int64
    Capacity *int
    Status   *RoomStatus
}

// Empty reports whether the patch changes nothing.
func (p RoomPatch) Empty() bool {
    return p.Name == nil && p.Price == nil && p.Capacity == nil && p.Status == nil
}

// Apply returns a copy of r with the supplied fields replaced.
func (p RoomPatch) Apply(r Room) Room {
    if p.Name != nil {
        r.Name = strings.TrimSpace(*p.Name)
    }
    if p.Price != nil {
        r.Price = *p.Price
    }
    if p.Capacity != nil {
        r.Capacity = *p.Capacity
    }
    if p.Status != nil {
        r.Status = *p.Status
    }
    return r
}

// RoomFilter narrows a room listing.  Bounds are inclusive and combined
// with AND; nil bounds impose nothing.  When Window is set, rooms holding
// an occupying reservation that overlaps it are excluded.  Listings only
// ever contain ACTIVE rooms.
type RoomFilter struct {
    PriceMin    *int64
    PriceMax    *int64
    CapacityMin *int
    CapacityMax *int
    Window      *Interval
}

// Matches applies the status and numeric parts of the filter.  The
// availability window needs reservation data and is checked by the store.
func (f RoomFilter) Matches(r Room) bool {
    if r.Status != RoomActive {
        return false
    }
    if f.PriceMin != nil && r.Price < *f.PriceMin {
        return false
    }
    if f.PriceMax != nil && r.Price > *f.PriceMax {
        return false
    }
    if f.CapacityMin != nil && r.Capacity < *f.CapacityMin {
        return false
    }
    if f.CapacityMax != nil && r.Capacity > *f.CapacityMax {
        return false
    }
    return true
}
