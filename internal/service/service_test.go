package service

import (
    "context"
    "io"
    "sync"
    "testing"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/guard"
    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/queue"
    "github.com/iliyamo/room-reservation/internal/repository"
)

var (
    admin  = model.Principal{ID: 1, Role: model.RoleAdmin}
    owner  = model.Principal{ID: 2, Role: model.RoleOwner}
    owner2 = model.Principal{ID: 5, Role: model.RoleOwner}
    guest  = model.Principal{ID: 3, Role: model.RoleGuest}
    guest2 = model.Principal{ID: 4, Role: model.RoleGuest}
)

func dec(d int) time.Time { return time.Date(2025, time.December, d, 0, 0, 0, 0, time.UTC) }

func quietLog() *logrus.Entry {
    l := logrus.New()
    l.Out = io.Discard
    return logrus.NewEntry(l)
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.ReservationEvent
    err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}

func (p *recordingPublisher) types() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    out := make([]string, len(p.events))
    for i, ev := range p.events {
        out[i] = ev.Type
    }
    return out
}

type fixture struct {
    store  *repository.MemoryStore
    rooms  *RoomService
    ledger *ReservationService
    events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    store := repository.NewMemoryStore(nil)
    events := &recordingPublisher{}
    return &fixture{
        store:  store,
        rooms:  NewRoomService(store, quietLog()),
        ledger: NewReservationService(store, guard.NewKeyedMutex(), events, quietLog(), 0),
        events: events,
    }
}

func (f *fixture) room(t *testing.T, by model.Principal, price int64, capacity int) model.Room {
    t.Helper()
    r, err := f.rooms.Create(context.Background(), by, RoomInput{Name: "Room", Price: price, Capacity: capacity})
    if err != nil {
        t.Fatalf("create room: %v", err)
    }
    return r
}

func (f *fixture) book(t *testing.T, by model.Principal, roomID uint64, in, out int) model.Reservation {
    t.Helper()
    r, err := f.ledger.Create(context.Background(), by, roomID, dec(in), dec(out))
    if err != nil {
        t.Fatalf("book %d..%d: %v", in, out, err)
    }
    return r
}
