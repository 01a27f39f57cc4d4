package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.  CANCELLED is
// terminal.  PENDING is accepted from storage and blocks the room like
// CONFIRMED, but no code path creates it.
type ReservationStatus string

const (
    ReservationPending   ReservationStatus = "PENDING"
    ReservationConfirmed ReservationStatus = "CONFIRMED"
    ReservationCancelled ReservationStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
    switch s {
    case ReservationPending, ReservationConfirmed, ReservationCancelled:
        return true
    }
    return false
}

// Occupies reports whether a reservation in this status holds its interval
// on the room.
func (s ReservationStatus) Occupies() bool {
    return s == ReservationPending || s == ReservationConfirmed
}

// Reservation is a guest's claim on a room for the half-open interval
// [CheckIn, CheckOut).
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – reserved room, immutable.
//  GuestID   – principal who made the reservation, immutable.
//  CheckIn   – start of the interval (inclusive).
//  CheckOut  – end of the interval (exclusive), always after CheckIn.
//  Status    – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Reservation struct {
    ID        uint64            `json:"id"`         // reservations.id
    RoomID    uint64            `json:"room_id"`    // reservations.room_id
    GuestID   uint64            `json:"guest_id"`   // reservations.guest_id
    CheckIn   time.Time         `json:"check_in"`   // reservations.check_in
    CheckOut  time.Time         `json:"check_out"`  // reservations.check_out
    Status    ReservationStatus `json:"status"`     // reservations.status
    CreatedAt time.Time         `json:"created_at"` // reservations.created_at
    UpdatedAt time.Time         `json:"updated_at"` // reservations.updated_at
}

// Interval returns the occupied time range of the reservation.
func (r Reservation) Interval() Interval {
    return Interval{Start: r.CheckIn, End: r.CheckOut}
}
