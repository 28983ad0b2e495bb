package sessions

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieName is the HTTP cookie carrying the session identifier.
const CookieName = "app_session"

// SetCookie writes the session cookie: httpOnly, SameSite=Lax, scoped to
// the whole origin, max-age matching the session lifetime, Secure outside
// development.
func SetCookie(c echo.Context, sessionID string, ttl time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie immediately.
func ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromCookie reads the session identifier from the request, or "".
func FromCookie(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
