package groups

import (
	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/guard"
)

// RegisterRoutes sets up group routes. Discovery of public groups and the
// caller's own memberships only needs authentication; everything that
// mutates groups requires the administrative capability named by adminKey.
// The key is passed in because the permissions package builds on this one.
func RegisterRoutes(e *echo.Echo, h *Handler, g *guard.Guard, adminKey string) {
	api := e.Group("/api/groups", g.RequireAuth())
	api.GET("/public", h.ListPublic)
	api.GET("/mine", h.Mine)

	admin := g.RequirePermission(adminKey)
	api.GET("", h.List, admin)
	api.POST("", h.Create, admin)
	api.PUT("/:id", h.Update, admin)
	api.DELETE("/:id", h.Delete, admin)
	api.GET("/:id/members", h.Members, admin)
	api.POST("/:id/members", h.AddMember, admin)
	api.DELETE("/:id/members/:userId", h.RemoveMember, admin)
}
