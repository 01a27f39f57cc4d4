package service

import (
    "context"
    "errors"
    "testing"

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/repository"
    "github.com/iliyamo/room-reservation/internal/utils"
)

func newAuth(t *testing.T) (*AuthService, *repository.MemoryStore) {
    t.Helper()
    store := repository.NewMemoryStore(nil)
    cfg := AuthConfig{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
    return NewAuthService(store, store, cfg, quietLog()), store
}

func TestRegister(t *testing.T) {
    auth, _ := newAuth(t)
    ctx := context.Background()

    s, err := auth.Register(ctx, "Guest@Example.com", "pw", "")
    if err != nil {
        t.Fatal(err)
    }
    if s.User.Role != model.RoleGuest || s.User.Email != "guest@example.com" {
        t.Fatalf("unexpected user %+v", s.User)
    }
    p, err := utils.ParseAccessToken("test-secret", s.Access.Token)
    if err != nil || p != s.User.Principal() {
        t.Fatalf("access token principal %+v %v", p, err)
    }

    cases := []struct {
        name, email, role string
        want              error
    }{
        {"admin self-registration", "root@example.com", "admin", ErrForbidden},
        {"unknown role", "x@example.com", "superuser", ErrValidation},
        {"duplicate email", "GUEST@example.com", "guest", ErrConflict},
        {"missing email", "", "owner", ErrValidation},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if _, err := auth.Register(ctx, tc.email, "pw", tc.role); !errors.Is(err, tc.want) {
                t.Fatalf("got %v, want %v", err, tc.want)
            }
        })
    }

    o, err := auth.Register(ctx, "owner@example.com", "pw", "OWNER")
    if err != nil || o.User.Role != model.RoleOwner {
        t.Fatalf("owner registration: %+v %v", o.User, err)
    }
}

func TestLoginRefreshLogout(t *testing.T) {
    auth, _ := newAuth(t)
    ctx := context.Background()
    reg, err := auth.Register(ctx, "guest@example.com", "pw", "GUEST")
    if err != nil {
        t.Fatal(err)
    }

    if _, err := auth.Login(ctx, "guest@example.com", "nope"); !errors.Is(err, ErrUnauthenticated) {
        t.Fatalf("bad password: got %v", err)
    }
    if _, err := auth.Login(ctx, "nobody@example.com", "pw"); !errors.Is(err, ErrUnauthenticated) {
        t.Fatalf("unknown email: got %v", err)
    }
    login, err := auth.Login(ctx, " GUEST@example.com ", "pw")
    if err != nil {
        t.Fatal(err)
    }

    rotated, err := auth.Refresh(ctx, reg.Refresh.Raw)
    if err != nil {
        t.Fatal(err)
    }
    if _, err := auth.Refresh(ctx, reg.Refresh.Raw); !errors.Is(err, ErrUnauthenticated) {
        t.Fatalf("reused refresh token: got %v", err)
    }

    if err := auth.Logout(ctx, nil, rotated.Refresh.Raw); err != nil {
        t.Fatal(err)
    }
    if _, err := auth.Refresh(ctx, rotated.Refresh.Raw); !errors.Is(err, ErrUnauthenticated) {
        t.Fatalf("logged-out refresh token: got %v", err)
    }

    p := login.User.Principal()
    if err := auth.Logout(ctx, &p, ""); err != nil {
        t.Fatal(err)
    }
    if _, err := auth.Refresh(ctx, login.Refresh.Raw); !errors.Is(err, ErrUnauthenticated) {
        t.Fatalf("logout-all left refresh valid: %v", err)
    }
    if err := auth.Logout(ctx, nil, ""); !errors.Is(err, ErrValidation) {
        t.Fatalf("empty logout: got %v", err)
    }
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
    auth, store := newAuth(t)
    ctx := context.Background()
    a, err := auth.EnsureAdmin(ctx, "admin@example.com", "pw")
    if err != nil {
        t.Fatal(err)
    }
    b, err := auth.EnsureAdmin(ctx, "admin@example.com", "other")
    if err != nil || a.ID != b.ID || b.Role != model.RoleAdmin {
        t.Fatalf("second EnsureAdmin: %+v %v", b, err)
    }
    users, _ := store.ListUsers(ctx)
    if len(users) != 1 {
        t.Fatalf("expected one user, got %d", len(users))
    }

    admins := NewAdminService(store, NewRoomService(store, quietLog()), nil)
    if _, err := admins.Users(ctx, model.Principal{ID: 9, Role: model.RoleGuest}); !errors.Is(err, ErrForbidden) {
        t.Fatalf("guest admin listing: got %v", err)
    }
    if got, err := admins.Users(ctx, a.Principal()); err != nil || len(got) != 1 {
        t.Fatalf("admin users: %v %v", got, err)
    }
}
