package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/guard"
    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/policy"
    "github.com/iliyamo/room-reservation/internal/queue"
    "github.com/iliyamo/room-reservation/internal/repository"
)

const publishTimeout = 3 * time.Second

// ReservationService is the reservation ledger.  Every mutation of a
// room's reservations runs while holding the room's guard lock and inside
// one store transaction, so the overlap check and the write it protects
// are never interleaved with another booking for the same room.
type ReservationService struct {
    store    repository.Store
    locker   guard.Locker
    events   EventPublisher
    log      *logrus.Entry
    lockWait time.Duration
    now      func() time.Time
}

// NewReservationService wires the ledger.  lockWait bounds how long a call
// queues behind other bookings for the same room before giving up with a
// conflict; zero means wait as long as ctx allows.
func NewReservationService(store repository.Store, locker guard.Locker, events EventPublisher, log *logrus.Entry, lockWait time.Duration) *ReservationService {
    if events == nil {
        events = NopPublisher{}
    }
    return &ReservationService{
        store:    store,
        locker:   locker,
        events:   events,
        log:      log.WithField("component", "reservations"),
        lockWait: lockWait,
        now:      time.Now,
    }
}

// Create books roomID for p over [checkIn, checkOut).  The new reservation
// is CONFIRMED.
func (s *ReservationService) Create(ctx context.Context, p model.Principal, roomID uint64, checkIn, checkOut time.Time) (model.Reservation, error) {
    if !policy.Allowed(policy.Request{Op: policy.CreateReservation, Principal: p}) {
        return model.Reservation{}, forbidden("role %s may not book rooms", p.Role)
    }
    in, err := model.NewInterval(checkIn, checkOut)
    if err != nil {
        return model.Reservation{}, validation("%s", err)
    }

    res := model.Reservation{
        RoomID:   roomID,
        GuestID:  p.ID,
        CheckIn:  in.Start,
        CheckOut: in.End,
        Status:   model.ReservationConfirmed,
    }
    err = s.withRoomLock(ctx, roomID, func(q repository.Queries) error {
        // the row lock serializes writers; room status does not gate booking
        _, err := q.LockRoom(ctx, roomID)
        if errors.Is(err, repository.ErrNotFound) {
            return notFound("room %d not found", roomID)
        }
        if err != nil {
            return fmt.Errorf("load room: %w", err)
        }
        taken, err := q.HasConflict(ctx, roomID, in, 0)
        if err != nil {
            return fmt.Errorf("check overlap: %w", err)
        }
        if taken {
            return conflict("room %d is already booked for part of that period", roomID)
        }
        if err := q.CreateReservation(ctx, &res); err != nil {
            if errors.Is(err, repository.ErrNotFound) {
                return notFound("room %d not found", roomID)
            }
            if errors.Is(err, repository.ErrCheckViolation) {
                return validation("check_in must be before check_out")
            }
            return fmt.Errorf("insert reservation: %w", err)
        }
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }

    s.log.WithFields(logrus.Fields{
        "reservation_id": res.ID,
        "room_id":        res.RoomID,
        "guest_id":       res.GuestID,
    }).Info("reservation confirmed")
    s.publish(ctx, queue.EventReservationConfirmed, res, p.ID)
    return res, nil
}

// Cancel moves a reservation to CANCELLED.  Cancelling twice is an
// InvalidState error, not a no-op.
func (s *ReservationService) Cancel(ctx context.Context, p model.Principal, id uint64) (model.Reservation, error) {
    current, err := s.store.GetReservation(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return model.Reservation{}, notFound("reservation %d not found", id)
    }
    if err != nil {
        return model.Reservation{}, fmt.Errorf("load reservation: %w", err)
    }
    if !policy.Allowed(policy.Request{Op: policy.CancelReservation, Principal: p, OwnerID: current.GuestID}) {
        return model.Reservation{}, forbidden("reservation %d belongs to another guest", id)
    }

    var updated model.Reservation
    err = s.withRoomLock(ctx, current.RoomID, func(q repository.Queries) error {
        res, err := q.LockReservation(ctx, id)
        if errors.Is(err, repository.ErrNotFound) {
            return notFound("reservation %d not found", id)
        }
        if err != nil {
            return fmt.Errorf("load reservation: %w", err)
        }
        if res.Status == model.ReservationCancelled {
            return invalidState("reservation %d is already cancelled", id)
        }
        updated, err = q.SetReservationStatus(ctx, id, model.ReservationCancelled)
        if err != nil {
            return fmt.Errorf("cancel reservation: %w", err)
        }
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }

    s.log.WithFields(logrus.Fields{
        "reservation_id": updated.ID,
        "room_id":        updated.RoomID,
        "actor_id":       p.ID,
    }).Info("reservation cancelled")
    s.publish(ctx, queue.EventReservationCancelled, updated, p.ID)
    return updated, nil
}

// ListForGuest returns the caller's own reservations in every status,
// ordered by check-in.
func (s *ReservationService) ListForGuest(ctx context.Context, p model.Principal) ([]model.Reservation, error) {
    if !policy.Allowed(policy.Request{Op: policy.ListOwnReservations, Principal: p, OwnerID: p.ID}) {
        return nil, forbidden("only guests have own reservations")
    }
    out, err := s.store.ListReservationsByGuest(ctx, p.ID)
    if err != nil {
        return nil, fmt.Errorf("list reservations: %w", err)
    }
    return out, nil
}

// ListForRoom returns every reservation of a room to its owner or an admin.
func (s *ReservationService) ListForRoom(ctx context.Context, p model.Principal, roomID uint64) ([]model.Reservation, error) {
    room, err := s.store.GetRoom(ctx, roomID)
    if errors.Is(err, repository.ErrNotFound) {
        return nil, notFound("room %d not found", roomID)
    }
    if err != nil {
        return nil, fmt.Errorf("load room: %w", err)
    }
    if !policy.Allowed(policy.Request{Op: policy.ViewRoomReservations, Principal: p, OwnerID: room.OwnerID}) {
        return nil, forbidden("room %d belongs to another owner", roomID)
    }
    out, err := s.store.ListReservationsByRoom(ctx, roomID)
    if err != nil {
        return nil, fmt.Errorf("list reservations: %w", err)
    }
    return out, nil
}

// ListAll returns every reservation.  Admin only.
func (s *ReservationService) ListAll(ctx context.Context, p model.Principal) ([]model.Reservation, error) {
    if !policy.Allowed(policy.Request{Op: policy.AdminList, Principal: p}) {
        return nil, forbidden("admin only")
    }
    out, err := s.store.ListAllReservations(ctx)
    if err != nil {
        return nil, fmt.Errorf("list reservations: %w", err)
    }
    return out, nil
}

// withRoomLock runs fn in a transaction while holding the guard lock for
// roomID.  The lock is released before the call returns.
func (s *ReservationService) withRoomLock(ctx context.Context, roomID uint64, fn func(q repository.Queries) error) error {
    lctx := ctx
    if s.lockWait > 0 {
        var cancel context.CancelFunc
        lctx, cancel = context.WithTimeout(ctx, s.lockWait)
        defer cancel()
    }
    unlock, err := s.locker.Lock(lctx, guard.RoomKey(roomID))
    if errors.Is(err, guard.ErrLockTimeout) {
        return conflict("room %d is busy, retry", roomID)
    }
    if err != nil {
        return fmt.Errorf("acquire room lock: %w", err)
    }
    defer unlock()
    return storeErr(s.store.InTx(ctx, fn))
}

func (s *ReservationService) publish(ctx context.Context, typ string, res model.Reservation, actor uint64) {
    pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
    defer cancel()
    ev := queue.NewReservationEvent(typ, res, actor, s.now())
    if err := s.events.Publish(pctx, ev); err != nil {
        s.log.WithError(err).WithFields(logrus.Fields{
            "reservation_id": res.ID,
            "event":          typ,
        }).Warn("publish reservation event failed")
    }
}
