package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kleineLoesungen/userbase/internal/database"
)

// Repository defines the data access contract for API tokens. Lookups go by
// digest only; there is no plaintext column to scan.
type Repository interface {
	Insert(ctx context.Context, userID int64, digest, name string) (*Token, error)

	// FindByDigest resolves a digest to (tokenID, userID). The boolean is
	// false when no token matches.
	FindByDigest(ctx context.Context, digest string) (int64, int64, bool, error)

	List(ctx context.Context, userID int64) ([]Token, error)

	// Delete removes a token scoped to its owner: a row is only deleted
	// when both id and user_id match. Returns the number of rows removed.
	Delete(ctx context.Context, tokenID, userID int64) (int64, error)

	// TouchLastUsed stamps last_used_at for the token.
	TouchLastUsed(ctx context.Context, tokenID int64) error
}

type repository struct {
	conn database.Connector
}

// NewRepository creates a token repository backed by the given connector.
func NewRepository(conn database.Connector) Repository {
	return &repository{conn: conn}
}

func (r *repository) Insert(ctx context.Context, userID int64, digest, name string) (*Token, error) {
	query := `INSERT INTO api_tokens (user_id, token_hash, name, created_at)
	          VALUES (?, ?, ?, NOW())`

	id, err := database.InsertID(ctx, r.conn, r.conn.Type(), query, userID, digest, name)
	if err != nil {
		return nil, fmt.Errorf("inserting token: %w", err)
	}

	t := &Token{}
	err = r.conn.QueryRow(ctx,
		`SELECT id, user_id, name, created_at, last_used_at FROM api_tokens WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt, &t.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("reading inserted token: %w", err)
	}
	return t, nil
}

func (r *repository) FindByDigest(ctx context.Context, digest string) (int64, int64, bool, error) {
	var tokenID, userID int64
	err := r.conn.QueryRow(ctx,
		`SELECT id, user_id FROM api_tokens WHERE token_hash = ?`, digest).
		Scan(&tokenID, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("querying token by digest: %w", err)
	}
	return tokenID, userID, true, nil
}

func (r *repository) List(ctx context.Context, userID int64) ([]Token, error) {
	query := `SELECT id, user_id, name, created_at, last_used_at
	          FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	var out []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning token row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) Delete(ctx context.Context, tokenID, userID int64) (int64, error) {
	result, err := r.conn.Exec(ctx,
		`DELETE FROM api_tokens WHERE id = ? AND user_id = ?`, tokenID, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting token: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (r *repository) TouchLastUsed(ctx context.Context, tokenID int64) error {
	_, err := r.conn.Exec(ctx,
		`UPDATE api_tokens SET last_used_at = NOW() WHERE id = ?`, tokenID)
	if err != nil {
		return fmt.Errorf("updating token last_used_at: %w", err)
	}
	return nil
}
