package settings

import (
	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/guard"
	"github.com/kleineLoesungen/userbase/internal/permissions"
)

// RegisterRoutes sets up settings routes. The registration probe is public
// so signup pages can render before any login; everything else is admin.
func RegisterRoutes(e *echo.Echo, h *Handler, g *guard.Guard) {
	api := e.Group("/api/settings")
	api.GET("/registration", h.Registration)

	admin := g.RequirePermission(string(permissions.KeyAdminManage))
	api.GET("", h.List, admin)
	api.PUT("", h.Update, admin)
}
