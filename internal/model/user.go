package model

import (
    "strings"
    "time"
)

// Role is the closed set of principal roles.  Roles are fixed at
// registration time and never change afterwards.
type Role string

const (
    RoleAdmin Role = "ADMIN"
    RoleOwner Role = "OWNER"
    RoleGuest Role = "GUEST"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
    r := Role(strings.ToUpper(strings.TrimSpace(s)))
    return r, r.Valid()
}

// Valid reports whether r is one of ADMIN, OWNER or GUEST.
func (r Role) Valid() bool {
    switch r {
    case RoleAdmin, RoleOwner, RoleGuest:
        return true
    }
    return false
}

// Principal is the verified identity attached to every call into the
// services.  It comes from the access token and is trusted as-is.
type Principal struct {
    ID   uint64
    Role Role
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// User represents an application user record as stored in the
// `users` table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash; never serialized.
//  Role         – ADMIN, OWNER or GUEST.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    `json:"id"`         // users.id
    Email        string    `json:"email"`      // users.email
    PasswordHash string    `json:"-"`          // users.password_hash
    Role         Role      `json:"role"`       // users.role
    CreatedAt    time.Time `json:"created_at"` // users.created_at
    UpdatedAt    time.Time `json:"updated_at"` // users.updated_at
}

// Principal returns the identity view of the user.
func (u User) Principal() Principal { return Principal{ID: u.ID, Role: u.Role} }

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the raw token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
