package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	// Postgres driver -- imported for side effect of registering the driver.
	_ "github.com/lib/pq"

	"github.com/kleineLoesungen/userbase/internal/config"
)

// NewPostgres creates a postgres connection pool configured with the
// settings from the provided config. It pings the database to verify
// connectivity before returning.
func NewPostgres(cfg config.DatabaseConfig) (Connector, error) {
	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	configurePool(db, cfg)

	if err := pingWithRetry(db, "postgres"); err != nil {
		db.Close()
		return nil, err
	}

	return &connector{db: db, typ: "postgres", rebind: rebindPostgres}, nil
}

// postgresDSN builds a lib/pq connection URL. url.UserPassword handles
// special characters in credentials.
func postgresDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// configurePool applies pool settings to prevent connection exhaustion and
// stale connections under load.
func configurePool(db *sql.DB, cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
}

// pingWithRetry pings with exponential backoff. The database may still be
// starting up when the app container launches; retrying avoids crash-loop
// restarts during cold starts.
func pingWithRetry(db *sql.DB, dialect string) error {
	const maxRetries = 10
	backoff := 1 * time.Second
	var pingErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = db.PingContext(ctx)
		cancel()

		if pingErr == nil {
			return nil
		}

		if attempt == maxRetries {
			break
		}

		slog.Warn("database not ready, retrying...",
			slog.String("dialect", dialect),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, 30*time.Second)
	}

	return fmt.Errorf("pinging %s after %d attempts: %w", dialect, maxRetries, pingErr)
}
