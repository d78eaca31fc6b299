package middleware

// identity.go holds the helpers that move the authenticated caller in
// and out of the Echo context.  JWTAuth writes it; handlers and the
// rate limiter read it.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/utils"
)

// SetIdentity stores id under the "user_id" and "role" keys.
func SetIdentity(c echo.Context, id utils.Identity) {
	c.Set("user_id", id.UserID)
	c.Set("role", id.Role)
}

// CurrentUser returns the authenticated user id and role.  ok is false
// when no identity is present.
func CurrentUser(c echo.Context) (userID uint64, role string, ok bool) {
	userID, ok = c.Get("user_id").(uint64)
	if !ok || userID == 0 {
		return 0, "", false
	}
	role, _ = c.Get("role").(string)
	return userID, role, true
}

// userKey identifies the caller for rate-limit keys, "anon" when no
// user is authenticated.
func userKey(c echo.Context) string {
	if id, _, ok := CurrentUser(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
