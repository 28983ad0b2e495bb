package tokens

import (
	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/guard"
)

// RegisterRoutes sets up token management routes. All require an
// authenticated caller; tokens are always scoped to the caller.
func RegisterRoutes(e *echo.Echo, h *Handler, g *guard.Guard) {
	api := e.Group("/api/tokens", g.RequireAuth())
	api.POST("", h.Create)
	api.GET("", h.List)
	api.DELETE("/:id", h.Delete)
}
