package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/room-reservation/internal/model"
)

// principalKey is the echo context key holding the authenticated
// model.Principal.
const principalKey = "principal"

// SetPrincipal stores p in the context along with the flat "user_id" and
// "role" values older handlers read.
func SetPrincipal(c echo.Context, p model.Principal) {
    c.Set(principalKey, p)
    c.Set("user_id", p.ID)
    c.Set("role", string(p.Role))
}

// PrincipalFrom returns the principal set by JWTAuth or OptionalJWT.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
    p, ok := c.Get(principalKey).(model.Principal)
    return p, ok
}

// userID returns the caller's id as a string for use in keys, or "anon".
func userID(c echo.Context) string {
    if p, ok := PrincipalFrom(c); ok {
        return strconv.FormatUint(p.ID, 10)
    }
    return "anon"
}
