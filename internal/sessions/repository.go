package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kleineLoesungen/userbase/internal/database"
)

// Repository defines the data access contract for sessions.
type Repository interface {
	Create(ctx context.Context, session *Session) error

	// Find returns the session only while it is unexpired; expired or
	// deleted sessions both come back as (nil, nil). The expiry filter
	// lives in the query so no request can ever observe the identity
	// behind a lapsed session.
	Find(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session. Idempotent: deleting a non-existent
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired reclaims rows whose expiry has passed and reports how
	// many were removed. Pure housekeeping; Find already filters.
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	conn database.Connector
}

// NewRepository creates a session repository backed by the given connector.
func NewRepository(conn database.Connector) Repository {
	return &repository{conn: conn}
}

func (r *repository) Create(ctx context.Context, session *Session) error {
	query := `INSERT INTO sessions (id, user_id, expires_at, created_at)
	          VALUES (?, ?, ?, NOW())`

	_, err := r.conn.Exec(ctx, query, session.ID, session.UserID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *repository) Find(ctx context.Context, sessionID string) (*Session, error) {
	query := `SELECT id, user_id, expires_at, created_at
	          FROM sessions WHERE id = ? AND expires_at > NOW()`

	s := &Session{}
	err := r.conn.QueryRow(ctx, query, sessionID).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

func (r *repository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
