// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into an audit trail.
package queue

import (
    "time"

    "github.com/iliyamo/room-reservation/internal/model"
)

// ReservationQueue is the durable queue carrying reservation events.
const ReservationQueue = "reservation.events"

// Event types.
const (
    EventReservationConfirmed = "reservation.confirmed"
    EventReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a reservation is created or
// cancelled.  It carries enough for downstream consumers to log or trigger
// analytics without querying the primary database.  Times are RFC3339 UTC.
type ReservationEvent struct {
    Type          string `json:"type"`
    ReservationID uint64 `json:"reservation_id"`
    RoomID        uint64 `json:"room_id"`
    GuestID       uint64 `json:"guest_id"`
    ActorID       uint64 `json:"actor_id"`
    CheckIn       string `json:"check_in"`
    CheckOut      string `json:"check_out"`
    Status        string `json:"status"`
    OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent builds the event for res.  actor is the principal
// that performed the change, which differs from the guest when an admin
// or room owner cancels.
func NewReservationEvent(typ string, res model.Reservation, actor uint64, at time.Time) ReservationEvent {
    return ReservationEvent{
        Type:          typ,
        ReservationID: res.ID,
        RoomID:        res.RoomID,
        GuestID:       res.GuestID,
        ActorID:       actor,
        CheckIn:       res.CheckIn.UTC().Format(time.RFC3339),
        CheckOut:      res.CheckOut.UTC().Format(time.RFC3339),
        Status:        string(res.Status),
        OccurredAt:    at.UTC().Format(time.RFC3339),
    }
}
