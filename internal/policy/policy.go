// Package policy decides whether a principal may perform an operation.
// Decisions are a pure function of the operation, the caller and the owner
// of the target record; callers turn a Deny into a forbidden error.
package policy

import "github.com/iliyamo/room-reservation/internal/model"

// Operation names a guarded entry point.
type Operation string

const (
    CreateRoom           Operation = "room.create"
    UpdateRoom           Operation = "room.update"
    ViewRoomReservations Operation = "room.reservations"
    ListRooms            Operation = "room.list"
    CreateReservation    Operation = "reservation.create"
    CancelReservation    Operation = "reservation.cancel"
    ListOwnReservations  Operation = "reservation.list_own"
    AdminList            Operation = "admin.list"
    Register             Operation = "auth.register"
)

// Decision is the verdict of Decide.
type Decision bool

const (
    Deny  Decision = false
    Allow Decision = true
)

// Request is the input to Decide.
//
// OwnerID is the owner of the target: the room owner for room operations,
// the guest for reservation operations, and the subject whose reservations
// are listed for ListOwnReservations.  TargetRole is only read by Register.
type Request struct {
    Op         Operation
    Principal  model.Principal
    OwnerID    uint64
    TargetRole model.Role
}

// Decide returns the verdict for r.  Unknown operations and principals
// with unknown roles are denied.
func Decide(r Request) Decision {
    if r.Op == Register {
        return Decision(r.TargetRole == model.RoleOwner || r.TargetRole == model.RoleGuest)
    }
    p := r.Principal
    if !p.Role.Valid() || p.ID == 0 {
        return Deny
    }
    switch r.Op {
    case CreateRoom:
        return Decision(p.Role == model.RoleOwner || p.Role == model.RoleAdmin)
    case UpdateRoom, ViewRoomReservations, CancelReservation:
        return Decision(p.IsAdmin() || p.ID == r.OwnerID)
    case ListRooms:
        return Allow
    case CreateReservation:
        return Decision(p.Role == model.RoleGuest || p.Role == model.RoleAdmin)
    case ListOwnReservations:
        return Decision(p.Role == model.RoleGuest && p.ID == r.OwnerID)
    case AdminList:
        return Decision(p.IsAdmin())
    }
    return Deny
}

// Allowed is shorthand for Decide(r) == Allow.
func Allowed(r Request) bool { return Decide(r) == Allow }
