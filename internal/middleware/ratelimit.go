package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/ratelimit"
)

// RateLimitByIP returns middleware that counts requests per client IP
// against the given limiter. The prefix keeps differently limited routes
// (login, register) from sharing one counter. Returns 429 with a
// Retry-After header when the limit is hit.
func RateLimitByIP(limiter *ratelimit.Limiter, prefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := prefix + ":" + c.RealIP()
			if !limiter.Allow(key) {
				_, resetAt := limiter.Remaining(key)
				retryAfter := int(time.Until(resetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return apperror.NewRateLimited("too many requests, slow down")
			}
			return next(c)
		}
	}
}
