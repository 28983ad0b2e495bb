package app

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/groups"
	"github.com/kleineLoesungen/userbase/internal/guard"
	"github.com/kleineLoesungen/userbase/internal/permissions"
	"github.com/kleineLoesungen/userbase/internal/sessions"
	"github.com/kleineLoesungen/userbase/internal/settings"
	"github.com/kleineLoesungen/userbase/internal/tokens"
	"github.com/kleineLoesungen/userbase/internal/users"
)

// Services are the long-lived services built during route registration
// that main also needs: the session service drives the background sweeper,
// and SyncRegistry reconciles the capability registry at startup.
type Services struct {
	Sessions sessions.Service

	groupRepo groups.Repository
	permRepo  permissions.Repository
	app       *App
}

// SyncRegistry reconciles the capability registry with the database.
// Run once at startup, after migrations and before serving.
func (s *Services) SyncRegistry(ctx context.Context) error {
	return permissions.Sync(ctx, s.app.DB, s.groupRepo, s.permRepo)
}

// RegisterRoutes builds all repositories, services, and handlers, and
// registers every route. This is the single place where the application
// is wired together.
func (a *App) RegisterRoutes() *Services {
	e := a.Echo

	// Repositories.
	userRepo := users.NewRepository(a.DB)
	groupRepo := groups.NewRepository(a.DB)
	permRepo := permissions.NewRepository(a.DB)
	sessionRepo := sessions.NewRepository(a.DB)
	tokenRepo := tokens.NewRepository(a.DB)
	settingsRepo := settings.NewRepository(a.DB)

	// Services.
	groupSvc := groups.NewService(groupRepo)
	permSvc := permissions.NewService(permRepo, groupRepo)
	sessionSvc := sessions.NewService(sessionRepo, a.Config.Session.TTL)
	tokenSvc := tokens.NewService(tokenRepo, a.TokenLimiter)
	userSvc := users.NewService(userRepo, groupRepo, groupSvc, settingsRepo, a.DB)

	// The guard authenticates every request (bearer token first, session
	// cookie second) and enforces capability checks per route group.
	g := guard.New(sessionSvc, tokenSvc, permSvc)
	e.Use(g.Authenticate())

	// Handlers.
	userHandler := users.NewHandler(userSvc, sessionSvc, permSvc, a.Config.Session.TTL, a.Config.IsProduction())
	groupHandler := groups.NewHandler(groupSvc)
	permHandler := permissions.NewHandler(permSvc)
	tokenHandler := tokens.NewHandler(tokenSvc)
	settingsHandler := settings.NewHandler(settingsRepo)

	// Health check endpoints for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := a.DB.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unreachable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Feature routes.
	users.RegisterRoutes(e, userHandler, g, a.AuthLimiter)
	tokens.RegisterRoutes(e, tokenHandler, g)
	groups.RegisterRoutes(e, groupHandler, g, string(permissions.KeyAdminManage))
	settings.RegisterRoutes(e, settingsHandler, g)
	permissions.RegisterRoutes(e, permHandler, g)

	return &Services{
		Sessions:  sessionSvc,
		groupRepo: groupRepo,
		permRepo:  permRepo,
		app:       a,
	}
}
