// Package main is the entry point for the userbase server. It loads
// configuration, connects to the database, runs migrations, reconciles the
// capability registry, wires together all feature packages, and starts the
// HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kleineLoesungen/userbase/internal/app"
	"github.com/kleineLoesungen/userbase/internal/config"
	"github.com/kleineLoesungen/userbase/internal/database"
	"github.com/kleineLoesungen/userbase/internal/ratelimit"
	"github.com/kleineLoesungen/userbase/internal/sessions"
	"github.com/kleineLoesungen/userbase/internal/tokens"
)

// Auth endpoints share one limiter: 10 attempts per IP per minute. The
// token limiter uses the resolution ceiling from the tokens package.
const (
	authAttemptLimit  = 10
	authAttemptWindow = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting userbase",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database.Type),
	)

	// --- Connect to the database ---
	manager := database.NewManager()
	defer func() {
		if err := manager.CloseAll(); err != nil {
			slog.Error("closing database pools", slog.Any("error", err))
		}
	}()

	db, err := manager.Open(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("connected to database", slog.String("type", db.Type()))

	// --- Migrations ---
	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Rate limiters ---
	authLimiter := ratelimit.New(authAttemptLimit, authAttemptWindow)
	defer authLimiter.Stop()
	tokenLimiter := ratelimit.New(tokens.ResolveLimit, tokens.ResolveWindow)
	defer tokenLimiter.Stop()

	// --- Create and wire the application ---
	application := app.New(cfg, db, authLimiter, tokenLimiter)
	services := application.RegisterRoutes()

	// Reconcile the capability registry before accepting traffic: the
	// administrator group and its default grants must exist.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := services.SyncRegistry(ctx); err != nil {
		cancel()
		slog.Error("failed to sync capability registry", slog.Any("error", err))
		os.Exit(1)
	}
	cancel()

	// --- Background session sweeper ---
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sessions.RunSweeper(sweepCtx, services.Sessions, cfg.Session.SweepInterval)

	// --- Graceful Shutdown ---
	// Listen for interrupt/term signals to drain connections cleanly.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := application.Echo.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	var handler slog.Handler

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel, slog.LevelDebug),
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel, slog.LevelInfo),
		})
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel maps the LOG_LEVEL config value to a slog level.
func parseLevel(level string, fallback slog.Level) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
