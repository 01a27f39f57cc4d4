package model

import (
    "errors"
    "time"
)

// ErrInvalidInterval is returned when an interval does not start strictly
// before it ends.
var ErrInvalidInterval = errors.New("check-in must be before check-out")

// Interval is a half-open time range [Start, End).
type Interval struct {
    Start time.Time
    End   time.Time
}

// NewInterval builds an interval and rejects empty or inverted ranges.
func NewInterval(start, end time.Time) (Interval, error) {
    if !start.Before(end) {
        return Interval{}, ErrInvalidInterval
    }
    return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether the two half-open intervals share an instant.
// Touching endpoints (one ends exactly when the other starts) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
    return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// HasConflict reports whether any reservation in existing blocks candidate
// on roomID.  Only occupying statuses count, and the reservation whose ID
// equals excludeID is ignored so a record can be re-validated against its
// siblings.  An excludeID of zero excludes nothing.
func HasConflict(existing []Reservation, roomID uint64, candidate Interval, excludeID uint64) bool {
    for _, r := range existing {
        if r.RoomID != roomID || !r.Status.Occupies() {
            continue
        }
        if excludeID != 0 && r.ID == excludeID {
            continue
        }
        if r.Interval().Overlaps(candidate) {
            return true
        }
    }
    return false
}
