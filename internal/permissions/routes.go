package permissions

import (
	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/guard"
)

// RegisterRoutes sets up permission routes. The registry listing is open
// to holders of permissions.list or admin.manage; grant changes require
// admin.manage.
func RegisterRoutes(e *echo.Echo, h *Handler, g *guard.Guard) {
	view := g.RequirePermission(string(KeyPermissionsList), string(KeyAdminManage))
	admin := g.RequirePermission(string(KeyAdminManage))

	api := e.Group("/api/permissions")
	api.GET("", h.Available, view)
	api.GET("/groups/:id", h.GroupGrants, admin)
	api.POST("/groups/:id", h.Grant, admin)
	api.DELETE("/:grantId", h.Revoke, admin)
}
