// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (database connector, rate
// limiter, Echo instance) and wires together all feature packages.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/config"
	"github.com/kleineLoesungen/userbase/internal/database"
	"github.com/kleineLoesungen/userbase/internal/middleware"
	"github.com/kleineLoesungen/userbase/internal/ratelimit"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the database connector shared by all feature packages.
	DB database.Connector

	// AuthLimiter throttles login and registration attempts per IP.
	AuthLimiter *ratelimit.Limiter

	// TokenLimiter throttles bearer token resolution per token digest.
	TokenLimiter *ratelimit.Limiter

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db database.Connector, authLimiter, tokenLimiter *ratelimit.Limiter) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. Per-IP rate limiting on the auth
	// endpoints depends on this.
	middleware.TrustedProxies(e, cfg.TrustedProxyCIDRs)

	app := &App{
		Config:       cfg,
		DB:           db,
		AuthLimiter:  authLimiter,
		TokenLimiter: tokenLimiter,
		Echo:         e,
	}

	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// Start begins listening on the configured port. Blocks until the server
// stops; returns http.ErrServerClosed after a graceful shutdown.
func (a *App) Start() error {
	return a.Echo.Start(fmt.Sprintf(":%d", a.Config.Port))
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Correlation ids -- before logging so request logs carry them.
	a.Echo.Use(middleware.RequestID())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS -- only when cross-origin clients are configured.
	if len(a.Config.CORSAllowedOrigins) > 0 {
		a.Echo.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   a.Config.CORSAllowedOrigins,
			AllowCredentials: true,
		}))
	}
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to JSON HTTP responses; everything the server speaks is JSON.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "an unexpected error occurred"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.RequestIDFrom(c)),
			)
		}
	} else {
		// Echo's built-in HTTP errors (e.g., 404 from the router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.RequestIDFrom(c)),
			)
		}
	}

	c.JSON(code, map[string]string{
		"error":   http.StatusText(code),
		"message": message,
	})
}
