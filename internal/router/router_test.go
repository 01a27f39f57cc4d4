package router

import (
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "strconv"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/room-reservation/internal/guard"
    "github.com/iliyamo/room-reservation/internal/handler"
    "github.com/iliyamo/room-reservation/internal/repository"
    "github.com/iliyamo/room-reservation/internal/service"
)

const testSecret = "test-secret"

func newApp(t *testing.T) (*echo.Echo, *service.AuthService) {
    t.Helper()
    l := logrus.New()
    l.Out = io.Discard
    log := logrus.NewEntry(l)

    store := repository.NewMemoryStore(nil)
    auth := service.NewAuthService(store, store, service.AuthConfig{
        JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost,
    }, log)
    rooms := service.NewRoomService(store, log)
    ledger := service.NewReservationService(store, guard.NewKeyedMutex(), nil, log, 0)
    admin := service.NewAdminService(store, rooms, ledger)

    b := handler.NewBase(0, log)
    e := echo.New()
    e.Validator = handler.NewRequestValidator()
    Register(e, Handlers{
        Health:       handler.NewHealthHandler("room-reservation", "test"),
        Auth:         handler.NewAuthHandler(auth, b),
        Rooms:        handler.NewRoomHandler(rooms, ledger, b),
        Reservations: handler.NewReservationHandler(ledger, b),
        Admin:        handler.NewAdminHandler(admin, b),
    }, Options{JWTSecret: testSecret, Log: log})
    return e, auth
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
    t.Helper()
    var rd io.Reader
    if body != "" {
        rd = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, path, rd)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    out := map[string]any{}
    _ = json.Unmarshal(rec.Body.Bytes(), &out)
    return rec, out
}

// register creates an account and returns its access token.
func register(t *testing.T, e *echo.Echo, email, role string) string {
    t.Helper()
    rec, out := do(t, e, http.MethodPost, "/v1/auth/register", "",
        `{"email":"`+email+`","password":"secret-pass","role":"`+role+`"}`)
    if rec.Code != http.StatusCreated {
        t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
    }
    return out["access"].(map[string]any)["token"].(string)
}

func id(t *testing.T, out map[string]any) string {
    t.Helper()
    v, ok := out["id"].(float64)
    if !ok {
        t.Fatalf("no id in %v", out)
    }
    return strconv.FormatFloat(v, 'f', 0, 64)
}

func TestHealthEndpoints(t *testing.T) {
    e, _ := newApp(t)
    if rec, _ := do(t, e, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
        t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
    }
    rec, out := do(t, e, http.MethodGet, "/health", "", "")
    if rec.Code != http.StatusOK || out["status"] != "ok" || out["version"] != "test" {
        t.Fatalf("health: %d %v", rec.Code, out)
    }
}

func TestBookingFlow(t *testing.T) {
    e, _ := newApp(t)
    owner := register(t, e, "owner@example.com", "OWNER")
    guest := register(t, e, "guest@example.com", "")
    guest2 := register(t, e, "guest2@example.com", "GUEST")

    rec, room := do(t, e, http.MethodPost, "/v1/rooms", owner, `{"name":"Deluxe Room","price":120,"capacity":2}`)
    if rec.Code != http.StatusCreated || room["status"] != "ACTIVE" {
        t.Fatalf("create room: %d %s", rec.Code, rec.Body.String())
    }
    roomID := id(t, room)

    booking := `{"room_id":` + roomID + `,"check_in":"2025-12-01T14:00:00Z","check_out":"2025-12-03T11:00:00Z"}`
    rec, res := do(t, e, http.MethodPost, "/v1/reservations", guest, booking)
    if rec.Code != http.StatusCreated || res["status"] != "CONFIRMED" {
        t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
    }
    resID := id(t, res)

    rec, out := do(t, e, http.MethodPost, "/v1/reservations", guest2,
        `{"room_id":`+roomID+`,"check_in":"2025-12-02T14:00:00Z","check_out":"2025-12-04T11:00:00Z"}`)
    if rec.Code != http.StatusConflict || out["code"] != "conflict" {
        t.Fatalf("overlap: %d %v", rec.Code, out)
    }

    // back-to-back is fine
    rec, _ = do(t, e, http.MethodPost, "/v1/reservations", guest2,
        `{"room_id":`+roomID+`,"check_in":"2025-12-03T11:00:00Z","check_out":"2025-12-05T11:00:00Z"}`)
    if rec.Code != http.StatusCreated {
        t.Fatalf("adjacent booking: %d %s", rec.Code, rec.Body.String())
    }

    rec, out = do(t, e, http.MethodGet, "/v1/rooms?check_in=2025-12-02&check_out=2025-12-03", guest, "")
    if rec.Code != http.StatusOK || out["count"].(float64) != 0 {
        t.Fatalf("availability: %d %v", rec.Code, out)
    }

    rec, _ = do(t, e, http.MethodPatch, "/v1/reservations/"+resID+"/cancel", guest2, "")
    if rec.Code != http.StatusForbidden {
        t.Fatalf("foreign cancel: %d", rec.Code)
    }
    rec, out = do(t, e, http.MethodPatch, "/v1/reservations/"+resID+"/cancel", guest, "")
    if rec.Code != http.StatusOK || out["status"] != "CANCELLED" {
        t.Fatalf("cancel: %d %v", rec.Code, out)
    }
    rec, out = do(t, e, http.MethodPatch, "/v1/reservations/"+resID+"/cancel", guest, "")
    if rec.Code != http.StatusConflict || out["code"] != "invalid_state" {
        t.Fatalf("second cancel: %d %v", rec.Code, out)
    }

    rec, out = do(t, e, http.MethodGet, "/v1/reservations/me", guest, "")
    if rec.Code != http.StatusOK || out["count"].(float64) != 1 {
        t.Fatalf("mine: %d %v", rec.Code, out)
    }
    rec, out = do(t, e, http.MethodGet, "/v1/rooms/"+roomID+"/reservations", owner, "")
    if rec.Code != http.StatusOK || out["count"].(float64) != 2 {
        t.Fatalf("room reservations: %d %v", rec.Code, out)
    }
}

func TestAccessControl(t *testing.T) {
    e, auth := newApp(t)
    owner := register(t, e, "owner@example.com", "OWNER")
    owner2 := register(t, e, "owner2@example.com", "OWNER")
    guest := register(t, e, "guest@example.com", "GUEST")

    _, room := do(t, e, http.MethodPost, "/v1/rooms", owner, `{"name":"Family Suite","price":200,"capacity":4}`)
    roomID := id(t, room)

    cases := []struct {
        name, method, path, token, body string
        want                            int
    }{
        {"no token", http.MethodGet, "/v1/rooms", "", "", http.StatusUnauthorized},
        {"bad token", http.MethodGet, "/v1/rooms", "garbage", "", http.StatusUnauthorized},
        {"guest creates room", http.MethodPost, "/v1/rooms", guest, `{"name":"x","price":1,"capacity":1}`, http.StatusForbidden},
        {"other owner patches", http.MethodPatch, "/v1/rooms/" + roomID, owner2, `{"price":10}`, http.StatusForbidden},
        {"other owner views bookings", http.MethodGet, "/v1/rooms/" + roomID + "/reservations", owner2, "", http.StatusForbidden},
        {"owner books", http.MethodPost, "/v1/reservations", owner, `{"room_id":` + roomID + `,"check_in":"2025-12-01T00:00:00Z","check_out":"2025-12-02T00:00:00Z"}`, http.StatusForbidden},
        {"guest lists users", http.MethodGet, "/v1/admin/users", guest, "", http.StatusForbidden},
        {"admin self-register", http.MethodPost, "/v1/auth/register", "", `{"email":"root@example.com","password":"secret-pass","role":"ADMIN"}`, http.StatusForbidden},
        {"duplicate email", http.MethodPost, "/v1/auth/register", "", `{"email":"OWNER@example.com","password":"secret-pass"}`, http.StatusConflict},
        {"short password", http.MethodPost, "/v1/auth/register", "", `{"email":"x@example.com","password":"short"}`, http.StatusBadRequest},
        {"missing room", http.MethodPatch, "/v1/rooms/999", owner, `{"price":10}`, http.StatusNotFound},
        {"negative price", http.MethodPatch, "/v1/rooms/" + roomID, owner, `{"price":-1}`, http.StatusBadRequest},
        {"half window", http.MethodGet, "/v1/rooms?check_in=2025-12-01", guest, "", http.StatusBadRequest},
        {"inverted window", http.MethodGet, "/v1/rooms?check_in=2025-12-03&check_out=2025-12-01", guest, "", http.StatusBadRequest},
        {"bad bound", http.MethodGet, "/v1/rooms?price_min=abc", guest, "", http.StatusBadRequest},
        {"reversed stay", http.MethodPost, "/v1/reservations", guest, `{"room_id":` + roomID + `,"check_in":"2025-12-02T00:00:00Z","check_out":"2025-12-01T00:00:00Z"}`, http.StatusBadRequest},
        {"unknown room", http.MethodPost, "/v1/reservations", guest, `{"room_id":999,"check_in":"2025-12-01T00:00:00Z","check_out":"2025-12-02T00:00:00Z"}`, http.StatusNotFound},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec, _ := do(t, e, tc.method, tc.path, tc.token, tc.body)
            if rec.Code != tc.want {
                t.Fatalf("got %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
            }
        })
    }

    if _, err := auth.EnsureAdmin(t.Context(), "admin@example.com", "admin-pass"); err != nil {
        t.Fatal(err)
    }
    rec, out := do(t, e, http.MethodPost, "/v1/auth/login", "", `{"email":"admin@example.com","password":"admin-pass"}`)
    if rec.Code != http.StatusOK {
        t.Fatalf("admin login: %d %s", rec.Code, rec.Body.String())
    }
    adminToken := out["access"].(map[string]any)["token"].(string)
    rec, out = do(t, e, http.MethodGet, "/v1/admin/users", adminToken, "")
    if rec.Code != http.StatusOK || out["count"].(float64) != 4 {
        t.Fatalf("admin users: %d %v", rec.Code, out)
    }
    rec, _ = do(t, e, http.MethodPatch, "/v1/rooms/"+roomID, adminToken, `{"status":"inactive"}`)
    if rec.Code != http.StatusOK {
        t.Fatalf("admin patch: %d %s", rec.Code, rec.Body.String())
    }
    rec, out = do(t, e, http.MethodGet, "/v1/rooms", guest, "")
    if rec.Code != http.StatusOK || out["count"].(float64) != 0 {
        t.Fatalf("inactive room listed: %v", out)
    }
}

func TestSessionLifecycle(t *testing.T) {
    e, _ := newApp(t)
    rec, out := do(t, e, http.MethodPost, "/v1/auth/register", "", `{"email":"guest@example.com","password":"secret-pass"}`)
    if rec.Code != http.StatusCreated {
        t.Fatalf("register: %d", rec.Code)
    }
    access := out["access"].(map[string]any)["token"].(string)
    refresh := out["refresh"].(map[string]any)["token"].(string)

    rec, out = do(t, e, http.MethodGet, "/v1/me", access, "")
    if rec.Code != http.StatusOK || out["email"] != "guest@example.com" || out["role"] != "GUEST" {
        t.Fatalf("me: %d %v", rec.Code, out)
    }
    if _, leaked := out["PasswordHash"]; leaked {
        t.Fatalf("password hash serialized")
    }

    rec, _ = do(t, e, http.MethodPost, "/v1/auth/login", "", `{"email":"guest@example.com","password":"wrong-pass"}`)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("bad login: %d", rec.Code)
    }

    rec, out = do(t, e, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
    if rec.Code != http.StatusOK {
        t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
    }
    rotated := out["refresh"].(map[string]any)["token"].(string)
    rec, _ = do(t, e, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("reused refresh token: %d", rec.Code)
    }

    rec, _ = do(t, e, http.MethodPost, "/v1/auth/logout", "", "")
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("anonymous logout: %d", rec.Code)
    }
    rec, _ = do(t, e, http.MethodPost, "/v1/auth/logout", access, "")
    if rec.Code != http.StatusNoContent {
        t.Fatalf("logout: %d", rec.Code)
    }
    rec, _ = do(t, e, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+rotated+`"}`)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("refresh after logout: %d", rec.Code)
    }
}
