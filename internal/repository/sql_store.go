package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/room-reservation/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
    Scan(dest ...any) error
}

// SQLStore implements Store on MySQL.  All timestamp fields are stored
// in UTC (the DSN sets loc=UTC).
type SQLStore struct {
    db *sql.DB
    q  querier
}

// NewSQLStore returns a SQLStore bound to db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, q: db} }

// DB exposes the underlying pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// InTx runs fn in a READ COMMITTED transaction.  Row locks taken through
// LockRoom/LockReservation serialize writers of the same room, and the
// conflict scan after the lock sees every reservation committed before it.
func (s *SQLStore) InTx(ctx context.Context, fn func(q Queries) error) error {
    tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
    if err != nil {
        return mapErr(err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&SQLStore{db: s.db, q: tx}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return mapErr(err)
    }
    committed = true
    return nil
}

const roomCols = `id, owner_id, name, price, capacity, status, created_at, updated_at`

func scanRoom(sc scanner) (model.Room, error) {
    var r model.Room
    err := sc.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Price, &r.Capacity, &r.Status, &r.CreatedAt, &r.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return r, ErrNotFound
    }
    return r, mapErr(err)
}

// GetRoom fetches a room by id.
func (s *SQLStore) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
    return scanRoom(s.q.QueryRowContext(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = ?`, id))
}

// LockRoom fetches a room and holds its row lock until the transaction
// ends.  Every booking mutation of the room goes through this lock.
func (s *SQLStore) LockRoom(ctx context.Context, id uint64) (model.Room, error) {
    return scanRoom(s.q.QueryRowContext(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = ? FOR UPDATE`, id))
}

// CreateRoom inserts room and populates its generated ID and timestamps.
func (s *SQLStore) CreateRoom(ctx context.Context, room *model.Room) error {
    const q = `INSERT INTO rooms (owner_id, name, price, capacity, status) VALUES (?, ?, ?, ?, ?)`
    res, err := s.q.ExecContext(ctx, q, room.OwnerID, room.Name, room.Price, room.Capacity, room.Status)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    // Query back the full row to populate timestamps and defaults
    got, err := s.GetRoom(ctx, uint64(id))
    if err != nil {
        return err
    }
    *room = got
    return nil
}

// UpdateRoom applies the non-nil fields of patch and returns the row.
func (s *SQLStore) UpdateRoom(ctx context.Context, id uint64, patch model.RoomPatch) (model.Room, error) {
    sets := make([]string, 0, 4)
    args := make([]any, 0, 5)
    if patch.Name != nil {
        sets = append(sets, "name = ?")
        args = append(args, strings.TrimSpace(*patch.Name))
    }
    if patch.Price != nil {
        sets = append(sets, "price = ?")
        args = append(args, *patch.Price)
    }
    if patch.Capacity != nil {
        sets = append(sets, "capacity = ?")
        args = append(args, *patch.Capacity)
    }
    if patch.Status != nil {
        sets = append(sets, "status = ?")
        args = append(args, *patch.Status)
    }
    if len(sets) > 0 {
        args = append(args, id)
        q := `UPDATE rooms SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
        if _, err := s.q.ExecContext(ctx, q, args...); err != nil {
            return model.Room{}, mapErr(err)
        }
    }
    return s.GetRoom(ctx, id)
}

// ListRooms returns ACTIVE rooms matching f.  The availability window is
// a NOT EXISTS over occupying reservations using the same half-open
// predicate as HasConflict.
func (s *SQLStore) ListRooms(ctx context.Context, f model.RoomFilter) ([]model.Room, error) {
    var b strings.Builder
    b.WriteString(`SELECT r.id, r.owner_id, r.name, r.price, r.capacity, r.status, r.created_at, r.updated_at
               FROM rooms r
               WHERE r.status = ?`)
    args := []any{model.RoomActive}
    if f.PriceMin != nil {
        b.WriteString(` AND r.price >= ?`)
        args = append(args, *f.PriceMin)
    }
    if f.PriceMax != nil {
        b.WriteString(` AND r.price <= ?`)
        args = append(args, *f.PriceMax)
    }
    if f.CapacityMin != nil {
        b.WriteString(` AND r.capacity >= ?`)
        args = append(args, *f.CapacityMin)
    }
    if f.CapacityMax != nil {
        b.WriteString(` AND r.capacity <= ?`)
        args = append(args, *f.CapacityMax)
    }
    if f.Window != nil {
        b.WriteString(` AND NOT EXISTS (
                   SELECT 1 FROM reservations b
                   WHERE b.room_id = r.id
                     AND b.status IN ('PENDING', 'CONFIRMED')
                     AND b.check_in < ? AND b.check_out > ?)`)
        args = append(args, f.Window.End, f.Window.Start)
    }
    b.WriteString(` ORDER BY r.id`)
    return s.queryRooms(ctx, b.String(), args...)
}

// ListAllRooms returns every room regardless of status.
func (s *SQLStore) ListAllRooms(ctx context.Context) ([]model.Room, error) {
    return s.queryRooms(ctx, `SELECT `+roomCols+` FROM rooms ORDER BY id`)
}

func (s *SQLStore) queryRooms(ctx context.Context, q string, args ...any) ([]model.Room, error) {
    rows, err := s.q.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, mapErr(err)
    }
    defer rows.Close()
    rooms := make([]model.Room, 0)
    for rows.Next() {
        r, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        rooms = append(rooms, r)
    }
    if err := rows.Err(); err != nil {
        return nil, mapErr(err)
    }
    return rooms, nil
}

const reservationCols = `id, room_id, guest_id, check_in, check_out, status, created_at, updated_at`

func scanReservation(sc scanner) (model.Reservation, error) {
    var r model.Reservation
    err := sc.Scan(&r.ID, &r.RoomID, &r.GuestID, &r.CheckIn, &r.CheckOut, &r.Status, &r.CreatedAt, &r.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return r, ErrNotFound
    }
    return r, mapErr(err)
}

// GetReservation fetches a reservation by id.
func (s *SQLStore) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    return scanReservation(s.q.QueryRowContext(ctx, `SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
}

// LockReservation fetches a reservation under a row lock.
func (s *SQLStore) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    return scanReservation(s.q.QueryRowContext(ctx, `SELECT `+reservationCols+` FROM reservations WHERE id = ? FOR UPDATE`, id))
}

// CreateReservation inserts res and populates its generated ID and
// timestamps.  The caller must have checked for conflicts inside the same
// transaction.
func (s *SQLStore) CreateReservation(ctx context.Context, res *model.Reservation) error {
    const q = `INSERT INTO reservations (room_id, guest_id, check_in, check_out, status) VALUES (?, ?, ?, ?, ?)`
    result, err := s.q.ExecContext(ctx, q, res.RoomID, res.GuestID, res.CheckIn.UTC(), res.CheckOut.UTC(), res.Status)
    if err != nil {
        return mapErr(err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    got, err := s.GetReservation(ctx, uint64(id))
    if err != nil {
        return err
    }
    *res = got
    return nil
}

// SetReservationStatus updates the status and returns the row.
func (s *SQLStore) SetReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) (model.Reservation, error) {
    if _, err := s.q.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id); err != nil {
        return model.Reservation{}, mapErr(err)
    }
    return s.GetReservation(ctx, id)
}

// HasConflict runs the overlap predicate: [a,b) and [c,d) conflict iff
// a < d AND c < b.  Cancelled rows never participate.
func (s *SQLStore) HasConflict(ctx context.Context, roomID uint64, in model.Interval, excludeID uint64) (bool, error) {
    const q = `SELECT EXISTS(
                   SELECT 1 FROM reservations
                   WHERE room_id = ?
                     AND status IN ('PENDING', 'CONFIRMED')
                     AND check_in < ? AND check_out > ?
                     AND id <> ?)`
    var exists bool
    if err := s.q.QueryRowContext(ctx, q, roomID, in.End.UTC(), in.Start.UTC(), excludeID).Scan(&exists); err != nil {
        return false, mapErr(err)
    }
    return exists, nil
}

// ListReservationsByGuest returns the guest's reservations in every status.
func (s *SQLStore) ListReservationsByGuest(ctx context.Context, guestID uint64) ([]model.Reservation, error) {
    return s.queryReservations(ctx,
        `SELECT `+reservationCols+` FROM reservations WHERE guest_id = ? ORDER BY check_in, id`, guestID)
}

// ListReservationsByRoom returns the room's reservations in every status.
func (s *SQLStore) ListReservationsByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
    return s.queryReservations(ctx,
        `SELECT `+reservationCols+` FROM reservations WHERE room_id = ? ORDER BY check_in, id`, roomID)
}

// ListAllReservations returns every reservation.
func (s *SQLStore) ListAllReservations(ctx context.Context) ([]model.Reservation, error) {
    return s.queryReservations(ctx, `SELECT `+reservationCols+` FROM reservations ORDER BY id`)
}

func (s *SQLStore) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
    rows, err := s.q.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, mapErr(err)
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        r, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, r)
    }
    if err := rows.Err(); err != nil {
        return nil, mapErr(err)
    }
    return out, nil
}
