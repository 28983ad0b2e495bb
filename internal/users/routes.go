package users

import (
	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/guard"
	"github.com/kleineLoesungen/userbase/internal/middleware"
	"github.com/kleineLoesungen/userbase/internal/permissions"
	"github.com/kleineLoesungen/userbase/internal/ratelimit"
)

// RegisterRoutes sets up account and authentication routes. Login and
// registration are public but rate-limited per IP against brute force;
// everything else requires a session or bearer token. The admin subtree
// additionally requires the admin.manage capability.
//
// authLimiter is owned by the caller so it can be stopped on shutdown.
func RegisterRoutes(e *echo.Echo, h *Handler, g *guard.Guard, authLimiter *ratelimit.Limiter) {
	api := e.Group("/api/users")
	api.POST("/register", h.Register, middleware.RateLimitByIP(authLimiter, "register"))
	api.POST("/login", h.Login, middleware.RateLimitByIP(authLimiter, "login"))
	api.POST("/logout", h.Logout)

	me := api.Group("/me", g.RequireAuth())
	me.GET("", h.Me)
	me.PUT("", h.UpdateMe)

	admin := api.Group("/admin", g.RequirePermission(string(permissions.KeyAdminManage)))
	admin.POST("", h.AdminCreate)
	admin.DELETE("/:id", h.AdminDelete)
	admin.POST("/:id/reset-password", h.AdminResetPassword)

	api.GET("", h.List, g.RequirePermission(string(permissions.KeyAdminManage)))
}
