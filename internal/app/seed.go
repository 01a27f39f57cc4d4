package app

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/repository"
    "github.com/iliyamo/room-reservation/internal/service"
)

// Demo accounts created by Seed.
const (
    SeedAdminEmail = "admin@example.com"
    SeedOwnerEmail = "owner@example.com"
    SeedGuestEmail = "guest@example.com"
)

var seedRooms = []service.RoomInput{
    {Name: "Deluxe Room", Price: 120, Capacity: 2},
    {Name: "Family Suite", Price: 200, Capacity: 4},
}

// Seed loads demo data: one account per role, two rooms owned by the
// owner and a confirmed stay for the guest starting tomorrow.  Running it
// again changes nothing.
func (a *App) Seed(ctx context.Context, now time.Time) error {
    if _, err := a.Auth.EnsureAdmin(ctx, SeedAdminEmail, "Admin123!"); err != nil {
        return fmt.Errorf("seed admin: %w", err)
    }
    owner, err := a.seedUser(ctx, SeedOwnerEmail, "Owner123!", model.RoleOwner)
    if err != nil {
        return err
    }
    guest, err := a.seedUser(ctx, SeedGuestEmail, "Guest123!", model.RoleGuest)
    if err != nil {
        return err
    }

    op := owner.Principal()
    existing, err := a.Store.ListAllRooms(ctx)
    if err != nil {
        return fmt.Errorf("seed rooms: %w", err)
    }
    have := make(map[string]model.Room, len(existing))
    for _, r := range existing {
        if r.OwnerID == owner.ID {
            have[r.Name] = r
        }
    }
    var first model.Room
    for i, in := range seedRooms {
        r, ok := have[in.Name]
        if !ok {
            if r, err = a.Rooms.Create(ctx, op, in); err != nil {
                return fmt.Errorf("seed room %q: %w", in.Name, err)
            }
        }
        if i == 0 {
            first = r
        }
    }

    gp := guest.Principal()
    mine, err := a.Reservations.ListForGuest(ctx, gp)
    if err != nil {
        return fmt.Errorf("seed reservation: %w", err)
    }
    if len(mine) > 0 {
        return nil
    }
    day := 24 * time.Hour
    _, err = a.Reservations.Create(ctx, gp, first.ID, now.Add(day), now.Add(3*day))
    if err != nil && !errors.Is(err, service.ErrConflict) {
        return fmt.Errorf("seed reservation: %w", err)
    }
    a.Log.Info("seed data loaded")
    return nil
}

func (a *App) seedUser(ctx context.Context, email, password string, role model.Role) (model.User, error) {
    u, err := a.Users.GetUserByEmail(ctx, email)
    if err == nil {
        return u, nil
    }
    if !errors.Is(err, repository.ErrNotFound) {
        return model.User{}, fmt.Errorf("seed %s: %w", email, err)
    }
    s, err := a.Auth.Register(ctx, email, password, string(role))
    if err != nil {
        return model.User{}, fmt.Errorf("seed %s: %w", email, err)
    }
    return s.User, nil
}
