// This file handles auto-running SQL migrations on startup.
package database

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"

	// File source driver for reading migration files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies all pending migrations for the connector's dialect.
// Migration files live in <migrationsPath>/<dialect>/ since the DDL differs
// between postgres and mysql. Uses golang-migrate to track which migrations
// have already been applied. Safe to call on every startup -- already-applied
// migrations are skipped.
func RunMigrations(conn Connector, migrationsPath string) error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch conn.Type() {
	case "postgres":
		driver, err = postgres.WithInstance(conn.DB(), &postgres.Config{})
	case "mysql":
		driver, err = mysql.WithInstance(conn.DB(), &mysql.Config{})
	default:
		return fmt.Errorf("no migration driver for dialect %s", conn.Type())
	}
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	sourceURL := "file://" + filepath.Join(migrationsPath, conn.Type())
	m, err := migrate.NewWithDatabaseInstance(sourceURL, conn.Type(), driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied",
		slog.String("dialect", conn.Type()),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}
