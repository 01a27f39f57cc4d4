package repository

import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/room-reservation/internal/model"
)

// MemoryStore is an in-process Store, UserStore and TokenStore.  It is
// used by tests and by the server when no DSN is configured.
//
// Transactions buffer their writes and apply them on commit; reads inside
// a transaction see the buffered writes on top of committed state.  The
// store takes no row locks, so callers that check-then-insert must
// serialize through the guard package.  Room updates made in a
// transaction are replayed field by field onto the committed row.
type MemoryStore struct {
    *memView

    mu           sync.RWMutex
    now          func() time.Time
    nextRoom     uint64
    nextRes      uint64
    nextUser     uint64
    nextToken    uint64
    rooms        map[uint64]model.Room
    reservations map[uint64]model.Reservation
    users        map[uint64]model.User
    tokens       map[string]model.RefreshToken
}

// NewMemoryStore returns an empty store.  A nil now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
    if now == nil {
        now = time.Now
    }
    s := &MemoryStore{
        now:          now,
        rooms:        make(map[uint64]model.Room),
        reservations: make(map[uint64]model.Reservation),
        users:        make(map[uint64]model.User),
        tokens:       make(map[string]model.RefreshToken),
    }
    s.memView = &memView{s: s}
    return s
}

// InTx runs fn against a buffered view and commits its writes only if fn
// returns nil.
func (s *MemoryStore) InTx(ctx context.Context, fn func(q Queries) error) error {
    tx := &memView{
        s:            s,
        tx:           true,
        rooms:        make(map[uint64]model.Room),
        reservations: make(map[uint64]model.Reservation),
        roomPatches:  make(map[uint64][]model.RoomPatch),
    }
    if err := fn(tx); err != nil {
        return err
    }
    if err := ctx.Err(); err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    for id, r := range tx.rooms {
        // updates replay onto the committed row so concurrent patches to
        // other fields survive
        if patches, ok := tx.roomPatches[id]; ok {
            if cur, exists := s.rooms[id]; exists {
                for _, p := range patches {
                    cur = p.Apply(cur)
                }
                cur.UpdatedAt = r.UpdatedAt
                r = cur
            }
        }
        s.rooms[id] = r
    }
    for id, r := range tx.reservations {
        s.reservations[id] = r
    }
    return nil
}

func (s *MemoryStore) stamp() time.Time { return s.now().UTC() }

// memView is the Queries implementation shared by the store itself
// (writes go straight to committed state) and by transactions (writes are
// buffered in rooms/reservations).
type memView struct {
    s            *MemoryStore
    tx           bool
    rooms        map[uint64]model.Room
    reservations map[uint64]model.Reservation
    roomPatches  map[uint64][]model.RoomPatch
}

func (v *memView) room(id uint64) (model.Room, bool) {
    if v.tx {
        if r, ok := v.rooms[id]; ok {
            return r, true
        }
    }
    v.s.mu.RLock()
    defer v.s.mu.RUnlock()
    r, ok := v.s.rooms[id]
    return r, ok
}

func (v *memView) putRoom(r model.Room) {
    if v.tx {
        v.rooms[r.ID] = r
        return
    }
    v.s.mu.Lock()
    v.s.rooms[r.ID] = r
    v.s.mu.Unlock()
}

func (v *memView) allRooms() []model.Room {
    v.s.mu.RLock()
    out := make([]model.Room, 0, len(v.s.rooms)+len(v.rooms))
    for id, r := range v.s.rooms {
        if _, shadowed := v.rooms[id]; !shadowed {
            out = append(out, r)
        }
    }
    v.s.mu.RUnlock()
    for _, r := range v.rooms {
        out = append(out, r)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

func (v *memView) reservation(id uint64) (model.Reservation, bool) {
    if v.tx {
        if r, ok := v.reservations[id]; ok {
            return r, true
        }
    }
    v.s.mu.RLock()
    defer v.s.mu.RUnlock()
    r, ok := v.s.reservations[id]
    return r, ok
}

func (v *memView) putReservation(r model.Reservation) {
    if v.tx {
        v.reservations[r.ID] = r
        return
    }
    v.s.mu.Lock()
    v.s.reservations[r.ID] = r
    v.s.mu.Unlock()
}

func (v *memView) allReservations() []model.Reservation {
    v.s.mu.RLock()
    out := make([]model.Reservation, 0, len(v.s.reservations)+len(v.reservations))
    for id, r := range v.s.reservations {
        if _, shadowed := v.reservations[id]; !shadowed {
            out = append(out, r)
        }
    }
    v.s.mu.RUnlock()
    for _, r := range v.reservations {
        out = append(out, r)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

func (v *memView) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
    r, ok := v.room(id)
    if !ok {
        return model.Room{}, ErrNotFound
    }
    return r, nil
}

func (v *memView) LockRoom(ctx context.Context, id uint64) (model.Room, error) {
    return v.GetRoom(ctx, id)
}

func (v *memView) CreateRoom(ctx context.Context, room *model.Room) error {
    v.s.mu.Lock()
    v.s.nextRoom++
    room.ID = v.s.nextRoom
    v.s.mu.Unlock()
    now := v.s.stamp()
    room.CreatedAt, room.UpdatedAt = now, now
    v.putRoom(*room)
    return nil
}

func (v *memView) UpdateRoom(ctx context.Context, id uint64, patch model.RoomPatch) (model.Room, error) {
    r, ok := v.room(id)
    if !ok {
        return model.Room{}, ErrNotFound
    }
    if patch.Empty() {
        return r, nil
    }
    if v.tx {
        v.roomPatches[id] = append(v.roomPatches[id], patch)
        r = patch.Apply(r)
        r.UpdatedAt = v.s.stamp()
        v.rooms[id] = r
        return r, nil
    }
    // read and write under one lock
    v.s.mu.Lock()
    defer v.s.mu.Unlock()
    r, ok = v.s.rooms[id]
    if !ok {
        return model.Room{}, ErrNotFound
    }
    r = patch.Apply(r)
    r.UpdatedAt = v.s.stamp()
    v.s.rooms[id] = r
    return r, nil
}

func (v *memView) ListRooms(ctx context.Context, f model.RoomFilter) ([]model.Room, error) {
    var booked []model.Reservation
    if f.Window != nil {
        booked = v.allReservations()
    }
    out := make([]model.Room, 0)
    for _, r := range v.allRooms() {
        if !f.Matches(r) {
            continue
        }
        if f.Window != nil && model.HasConflict(booked, r.ID, *f.Window, 0) {
            continue
        }
        out = append(out, r)
    }
    return out, nil
}

func (v *memView) ListAllRooms(ctx context.Context) ([]model.Room, error) {
    return v.allRooms(), nil
}

func (v *memView) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    r, ok := v.reservation(id)
    if !ok {
        return model.Reservation{}, ErrNotFound
    }
    return r, nil
}

func (v *memView) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    return v.GetReservation(ctx, id)
}

func (v *memView) CreateReservation(ctx context.Context, res *model.Reservation) error {
    if _, ok := v.room(res.RoomID); !ok {
        return ErrNotFound
    }
    v.s.mu.Lock()
    v.s.nextRes++
    res.ID = v.s.nextRes
    v.s.mu.Unlock()
    now := v.s.stamp()
    res.CheckIn, res.CheckOut = res.CheckIn.UTC(), res.CheckOut.UTC()
    res.CreatedAt, res.UpdatedAt = now, now
    v.putReservation(*res)
    return nil
}

func (v *memView) SetReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) (model.Reservation, error) {
    r, ok := v.reservation(id)
    if !ok {
        return model.Reservation{}, ErrNotFound
    }
    r.Status = status
    r.UpdatedAt = v.s.stamp()
    v.putReservation(r)
    return r, nil
}

func (v *memView) HasConflict(ctx context.Context, roomID uint64, in model.Interval, excludeID uint64) (bool, error) {
    return model.HasConflict(v.allReservations(), roomID, in, excludeID), nil
}

func (v *memView) ListReservationsByGuest(ctx context.Context, guestID uint64) ([]model.Reservation, error) {
    out := filterReservations(v.allReservations(), func(r model.Reservation) bool { return r.GuestID == guestID })
    sortByCheckIn(out)
    return out, nil
}

func (v *memView) ListReservationsByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
    out := filterReservations(v.allReservations(), func(r model.Reservation) bool { return r.RoomID == roomID })
    sortByCheckIn(out)
    return out, nil
}

func (v *memView) ListAllReservations(ctx context.Context) ([]model.Reservation, error) {
    return v.allReservations(), nil
}

func filterReservations(in []model.Reservation, keep func(model.Reservation) bool) []model.Reservation {
    out := make([]model.Reservation, 0)
    for _, r := range in {
        if keep(r) {
            out = append(out, r)
        }
    }
    return out
}

func sortByCheckIn(rs []model.Reservation) {
    sort.SliceStable(rs, func(i, j int) bool {
        if !rs[i].CheckIn.Equal(rs[j].CheckIn) {
            return rs[i].CheckIn.Before(rs[j].CheckIn)
        }
        return rs[i].ID < rs[j].ID
    })
}

// CreateUser stores a user; emails are unique case-insensitively.
func (s *MemoryStore) CreateUser(ctx context.Context, email, passwordHash string, role model.Role) (model.User, error) {
    email = normalizeEmail(email)
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, u := range s.users {
        if u.Email == email {
            return model.User{}, ErrEmailExists
        }
    }
    s.nextUser++
    now := s.stamp()
    u := model.User{ID: s.nextUser, Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: now, UpdatedAt: now}
    s.users[u.ID] = u
    return u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
    email = normalizeEmail(email)
    s.mu.RLock()
    defer s.mu.RUnlock()
    for _, u := range s.users {
        if strings.EqualFold(u.Email, email) {
            return u, nil
        }
    }
    return model.User{}, ErrNotFound
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    u, ok := s.users[id]
    if !ok {
        return model.User{}, ErrNotFound
    }
    return u, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]model.User, error) {
    s.mu.RLock()
    out := make([]model.User, 0, len(s.users))
    for _, u := range s.users {
        out = append(out, u)
    }
    s.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *MemoryStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextToken++
    s.tokens[tokenHash] = model.RefreshToken{
        ID:        s.nextToken,
        UserID:    userID,
        TokenHash: tokenHash,
        ExpiresAt: exp.UTC(),
        CreatedAt: s.stamp(),
    }
    return nil
}

func (s *MemoryStore) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    t, ok := s.tokens[tokenHash]
    if !ok || t.RevokedAt != nil || !s.stamp().Before(t.ExpiresAt) {
        return 0, ErrNotFound
    }
    return t.UserID, nil
}

func (s *MemoryStore) RevokeByHash(ctx context.Context, tokenHash string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    t, ok := s.tokens[tokenHash]
    now := s.stamp()
    if !ok || t.RevokedAt != nil || !now.Before(t.ExpiresAt) {
        return ErrNotFound
    }
    t.RevokedAt = &now
    s.tokens[tokenHash] = t
    return nil
}

func (s *MemoryStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.stamp()
    for h, t := range s.tokens {
        if t.UserID == userID && t.RevokedAt == nil {
            t.RevokedAt = &now
            s.tokens[h] = t
        }
    }
    return nil
}

var (
    _ Store      = (*MemoryStore)(nil)
    _ UserStore  = (*MemoryStore)(nil)
    _ TokenStore = (*MemoryStore)(nil)
    _ Store      = (*SQLStore)(nil)
    _ UserStore  = (*UserRepo)(nil)
    _ TokenStore = (*TokenRepo)(nil)
)
