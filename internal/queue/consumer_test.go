package queue

import (
    "encoding/json"
    "errors"
    "io"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/model"
)

func TestAuditWriterAppendsLines(t *testing.T) {
    path := filepath.Join(t.TempDir(), "audit", "reservations.log")
    w := &AuditWriter{Path: path}

    res := model.Reservation{
        ID:       7,
        RoomID:   3,
        GuestID:  4,
        CheckIn:  time.Date(2025, 12, 1, 14, 0, 0, 0, time.UTC),
        CheckOut: time.Date(2025, 12, 3, 11, 0, 0, 0, time.UTC),
        Status:   model.ReservationConfirmed,
    }
    body, _ := json.Marshal(NewReservationEvent(EventReservationConfirmed, res, 4, res.CheckIn))
    if err := w.HandleMessage(body); err != nil {
        t.Fatal(err)
    }
    res.Status = model.ReservationCancelled
    if err := w.Write(NewReservationEvent(EventReservationCancelled, res, 1, res.CheckIn)); err != nil {
        t.Fatal(err)
    }

    data, err := os.ReadFile(path)
    if err != nil {
        t.Fatal(err)
    }
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    if len(lines) != 2 {
        t.Fatalf("expected 2 lines, got %q", data)
    }
    if !strings.Contains(lines[0], "reservation.confirmed | reservation_id=7 | room_id=3") {
        t.Fatalf("unexpected first line %q", lines[0])
    }
    if !strings.Contains(lines[1], "actor_id=1") || !strings.Contains(lines[1], "status=CANCELLED") {
        t.Fatalf("unexpected second line %q", lines[1])
    }
}

func TestAuditWriterRejectsGarbage(t *testing.T) {
    w := &AuditWriter{Path: filepath.Join(t.TempDir(), "a.log")}
    for _, body := range []string{"not json", `{"type":""}`, `{"type":"reservation.confirmed"}`} {
        if err := w.HandleMessage([]byte(body)); !errors.Is(err, ErrBadEvent) {
            t.Fatalf("%s: got %v, want ErrBadEvent", body, err)
        }
    }
}

// recordingAck captures how a delivery was settled.
type recordingAck struct {
    acked, nacked, requeue bool
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
    a.acked = true
    return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
    a.nacked, a.requeue = true, requeue
    return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
    return a.Nack(tag, false, requeue)
}

func TestConsumerSettlesDeliveries(t *testing.T) {
    dir := t.TempDir()
    // a regular file where the audit directory should be
    blocker := filepath.Join(dir, "blocker")
    if err := os.WriteFile(blocker, nil, 0o644); err != nil {
        t.Fatal(err)
    }
    good, _ := json.Marshal(NewReservationEvent(EventReservationConfirmed,
        model.Reservation{ID: 7, RoomID: 3, GuestID: 4, Status: model.ReservationConfirmed}, 4, time.Now()))

    cases := []struct {
        name        string
        path        string
        body        []byte
        wantAck     bool
        wantRequeue bool
    }{
        {"written", filepath.Join(dir, "ok.log"), good, true, false},
        {"undecodable is dropped", filepath.Join(dir, "ok.log"), []byte("not json"), false, false},
        {"write failure is requeued", filepath.Join(blocker, "audit.log"), good, false, true},
    }
    log := logrus.New()
    log.SetOutput(io.Discard)
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c := &Consumer{Writer: &AuditWriter{Path: tc.path}, Log: logrus.NewEntry(log)}
            ack := &recordingAck{}
            requeued := c.handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: tc.body})

            if ack.acked != tc.wantAck || ack.nacked == tc.wantAck {
                t.Fatalf("acked=%v nacked=%v, want ack %v", ack.acked, ack.nacked, tc.wantAck)
            }
            if ack.requeue != tc.wantRequeue || requeued != tc.wantRequeue {
                t.Fatalf("requeue=%v returned=%v, want %v", ack.requeue, requeued, tc.wantRequeue)
            }
        })
    }
}
