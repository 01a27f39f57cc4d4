package repository

import (
    "context"
    "time"

    "github.com/iliyamo/room-reservation/internal/model"
)

// Queries is the query surface over rooms and reservations.  Lookups
// return ErrNotFound for missing rows.  The Lock* variants additionally
// take a row lock that is held until the surrounding transaction ends;
// outside a transaction they behave like the plain lookups.
type Queries interface {
    GetRoom(ctx context.Context, id uint64) (model.Room, error)
    LockRoom(ctx context.Context, id uint64) (model.Room, error)
    CreateRoom(ctx context.Context, room *model.Room) error
    UpdateRoom(ctx context.Context, id uint64, patch model.RoomPatch) (model.Room, error)
    // ListRooms returns ACTIVE rooms matching f, ordered by id.
    ListRooms(ctx context.Context, f model.RoomFilter) ([]model.Room, error)
    ListAllRooms(ctx context.Context) ([]model.Room, error)

    GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
    LockReservation(ctx context.Context, id uint64) (model.Reservation, error)
    CreateReservation(ctx context.Context, res *model.Reservation) error
    SetReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) (model.Reservation, error)
    // HasConflict reports whether an occupying reservation on roomID other
    // than excludeID overlaps in.
    HasConflict(ctx context.Context, roomID uint64, in model.Interval, excludeID uint64) (bool, error)
    // ListReservationsByGuest is ordered by check-in ascending.
    ListReservationsByGuest(ctx context.Context, guestID uint64) ([]model.Reservation, error)
    ListReservationsByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error)
    ListAllReservations(ctx context.Context) ([]model.Reservation, error)
}

// Store is a Queries that can run a unit of work atomically.  If fn
// returns an error nothing it wrote is persisted and the error is
// returned unchanged.
type Store interface {
    Queries
    InTx(ctx context.Context, fn func(q Queries) error) error
}

// UserStore persists principals for the identity endpoints.
type UserStore interface {
    CreateUser(ctx context.Context, email, passwordHash string, role model.Role) (model.User, error)
    GetUserByEmail(ctx context.Context, email string) (model.User, error)
    GetUserByID(ctx context.Context, id uint64) (model.User, error)
    ListUsers(ctx context.Context) ([]model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    // ValidateRefresh returns the owner of a live token or ErrNotFound.
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    // RevokeByHash revokes a live token or returns ErrNotFound.
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}
