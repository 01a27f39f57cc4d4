package model

import "testing"

func TestRoomValidate(t *testing.T) {
    ok := Room{Name: "Deluxe Room", Price: 120, Capacity: 2, Status: RoomActive}
    if err := ok.Validate(); err != nil {
        t.Fatalf("valid room rejected: %v", err)
    }
    free := ok
    free.Price = 0
    if err := free.Validate(); err != nil {
        t.Fatalf("zero price rejected: %v", err)
    }

    cases := []struct {
        name string
        mut  func(*Room)
        want error
    }{
        {"blank name", func(r *Room) { r.Name = "  " }, ErrRoomName},
        {"negative price", func(r *Room) { r.Price = -1 }, ErrRoomPrice},
        {"zero capacity", func(r *Room) { r.Capacity = 0 }, ErrRoomCapacity},
        {"unknown status", func(r *Room) { r.Status = "GONE" }, ErrRoomStatus},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            r := ok
            tc.mut(&r)
            if err := r.Validate(); err != tc.want {
                t.Fatalf("got %v, want %v", err, tc.want)
            }
        })
    }
}

func TestRoomPatchApplyOnlySuppliedFields(t *testing.T) {
    base := Room{ID: 7, OwnerID: 3, Name: "Deluxe Room", Price: 120, Capacity: 2, Status: RoomActive}
    price := int64(150)
    got := RoomPatch{Price: &price}.Apply(base)
    if got.Price != 150 || got.Name != base.Name || got.Capacity != base.Capacity || got.Status != base.Status {
        t.Fatalf("unexpected patch result %+v", got)
    }
    if got.ID != base.ID || got.OwnerID != base.OwnerID {
        t.Fatalf("patch touched identity fields: %+v", got)
    }
    if !(RoomPatch{}).Empty() {
        t.Fatalf("zero patch should be empty")
    }
}

func TestRoomFilterMatches(t *testing.T) {
    i64 := func(v int64) *int64 { return &v }
    iv := func(v int) *int { return &v }
    room := Room{Price: 120, Capacity: 2, Status: RoomActive}

    cases := []struct {
        name string
        f    RoomFilter
        room Room
        want bool
    }{
        {"no bounds", RoomFilter{}, room, true},
        {"inactive excluded", RoomFilter{}, Room{Price: 120, Capacity: 2, Status: RoomInactive}, false},
        {"inclusive price bounds", RoomFilter{PriceMin: i64(120), PriceMax: i64(120)}, room, true},
        {"below price min", RoomFilter{PriceMin: i64(121)}, room, false},
        {"above price max", RoomFilter{PriceMax: i64(119)}, room, false},
        {"inclusive capacity bounds", RoomFilter{CapacityMin: iv(2), CapacityMax: iv(2)}, room, true},
        {"capacity too small", RoomFilter{CapacityMin: iv(3)}, room, false},
        {"capacity too large", RoomFilter{CapacityMax: iv(1)}, room, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := tc.f.Matches(tc.room); got != tc.want {
                t.Fatalf("Matches = %v, want %v", got, tc.want)
            }
        })
    }
}
