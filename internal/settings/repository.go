// Package settings provides application-wide key/value configuration
// persisted in the database, e.g. whether public registration is open.
// Defaults are seeded by the schema migrations.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/database"
)

// Well-known setting keys.
const (
	KeyRegistrationEnabled     = "registration_enabled"
	KeyNotifyUserCreation      = "notify_user_creation"
	KeyNotifyAdminRegistration = "notify_admin_registration"
)

// Setting is one persisted configuration entry.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Repository defines the data access contract for settings.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	List(ctx context.Context) ([]Setting, error)
}

type repository struct {
	conn database.Connector
}

// NewRepository creates a settings repository backed by the given connector.
func NewRepository(conn database.Connector) Repository {
	return &repository{conn: conn}
}

func (r *repository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.conn.QueryRow(ctx, `SELECT value FROM settings WHERE name = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *repository) Set(ctx context.Context, key, value string) error {
	result, err := r.conn.Exec(ctx,
		`UPDATE settings SET value = ?, updated_at = NOW() WHERE name = ?`, value, key)
	if err != nil {
		return fmt.Errorf("updating setting %s: %w", key, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Unknown keys are not created on the fly: the schema seeds the
		// full set, and accepting arbitrary keys would turn a typo into
		// silent misconfiguration.
		return apperror.NewNotFound("unknown setting: " + key)
	}
	return nil
}

func (r *repository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT name, value, description, updated_at FROM settings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		var description sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &description, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}
		s.Description = description.String
		out = append(out, s)
	}
	return out, rows.Err()
}
