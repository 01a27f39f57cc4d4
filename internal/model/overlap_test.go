package model

import (
    "testing"
    "time"
)

func day(d int) time.Time { return time.Date(2025, time.December, d, 0, 0, 0, 0, time.UTC) }

func TestNewIntervalRejectsEmptyAndInverted(t *testing.T) {
    if _, err := NewInterval(day(3), day(3)); err != ErrInvalidInterval {
        t.Fatalf("equal endpoints: got %v, want ErrInvalidInterval", err)
    }
    if _, err := NewInterval(day(5), day(3)); err != ErrInvalidInterval {
        t.Fatalf("inverted: got %v, want ErrInvalidInterval", err)
    }
    in, err := NewInterval(day(1), day(3))
    if err != nil {
        t.Fatalf("valid interval: %v", err)
    }
    if !in.Start.Equal(day(1)) || !in.End.Equal(day(3)) {
        t.Fatalf("unexpected interval %+v", in)
    }
}

func TestIntervalOverlaps(t *testing.T) {
    cases := []struct {
        name string
        a, b Interval
        want bool
    }{
        {"touching end to start", Interval{day(1), day(3)}, Interval{day(3), day(5)}, false},
        {"touching start to end", Interval{day(3), day(5)}, Interval{day(1), day(3)}, false},
        {"partial overlap", Interval{day(10), day(12)}, Interval{day(11), day(13)}, true},
        {"contained", Interval{day(1), day(10)}, Interval{day(2), day(3)}, true},
        {"identical", Interval{day(1), day(2)}, Interval{day(1), day(2)}, true},
        {"disjoint", Interval{day(1), day(2)}, Interval{day(4), day(6)}, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := tc.a.Overlaps(tc.b); got != tc.want {
                t.Fatalf("Overlaps = %v, want %v", got, tc.want)
            }
            if got := tc.b.Overlaps(tc.a); got != tc.want {
                t.Fatalf("Overlaps is not symmetric")
            }
        })
    }
}

func TestHasConflict(t *testing.T) {
    existing := []Reservation{
        {ID: 1, RoomID: 1, CheckIn: day(10), CheckOut: day(12), Status: ReservationConfirmed},
        {ID: 2, RoomID: 1, CheckIn: day(20), CheckOut: day(22), Status: ReservationCancelled},
        {ID: 3, RoomID: 2, CheckIn: day(10), CheckOut: day(12), Status: ReservationConfirmed},
        {ID: 4, RoomID: 1, CheckIn: day(25), CheckOut: day(27), Status: ReservationPending},
    }
    cases := []struct {
        name      string
        room      uint64
        in        Interval
        excludeID uint64
        want      bool
    }{
        {"overlaps confirmed", 1, Interval{day(11), day(13)}, 0, true},
        {"starts at checkout", 1, Interval{day(12), day(14)}, 0, false},
        {"cancelled does not block", 1, Interval{day(20), day(22)}, 0, false},
        {"pending blocks", 1, Interval{day(26), day(28)}, 0, true},
        {"other room ignored", 2, Interval{day(20), day(22)}, 0, false},
        {"own record excluded", 1, Interval{day(10), day(12)}, 1, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := HasConflict(existing, tc.room, tc.in, tc.excludeID); got != tc.want {
                t.Fatalf("HasConflict = %v, want %v", got, tc.want)
            }
        })
    }
}
