package permissions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/database"
)

// Grant is a capability assigned to a group.
type Grant struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"groupId"`
	Key       Key       `json:"permission"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists group-to-capability grants and resolves the
// per-user union over group memberships.
type Repository interface {
	// Add grants a capability to a group. Adding an existing grant is a
	// no-op; both outcomes return the stored grant.
	Add(ctx context.Context, groupID int64, key Key) (*Grant, error)
	AddTx(ctx context.Context, tx database.Querier, groupID int64, key Key) error
	Find(ctx context.Context, grantID int64) (*Grant, error)
	Remove(ctx context.Context, grantID int64) error
	GroupGrants(ctx context.Context, groupID int64) ([]Grant, error)
	// EffectiveCapabilities returns the distinct capability keys granted to
	// any group the user belongs to.
	EffectiveCapabilities(ctx context.Context, userID int64) (Set, error)
}

type repository struct {
	conn database.Connector
}

// NewRepository returns a Repository backed by the given database.
func NewRepository(conn database.Connector) Repository {
	return &repository{conn: conn}
}

func (r *repository) Add(ctx context.Context, groupID int64, key Key) (*Grant, error) {
	if err := r.AddTx(ctx, r.conn, groupID, key); err != nil {
		return nil, err
	}
	row := r.conn.QueryRow(ctx,
		`SELECT id, group_id, permission, created_at FROM group_permissions WHERE group_id = ? AND permission = ?`,
		groupID, string(key))
	return scanGrant(row)
}

// AddTx inserts the grant with a conflict-safe upsert so re-granting never
// aborts an open transaction.
func (r *repository) AddTx(ctx context.Context, tx database.Querier, groupID int64, key Key) error {
	var query string
	if r.conn.Type() == "postgres" {
		query = `INSERT INTO group_permissions (group_id, permission) VALUES (?, ?) ON CONFLICT (group_id, permission) DO NOTHING`
	} else {
		query = `INSERT IGNORE INTO group_permissions (group_id, permission) VALUES (?, ?)`
	}
	if _, err := tx.Exec(ctx, query, groupID, string(key)); err != nil {
		return fmt.Errorf("granting %q to group %d: %w", key, groupID, err)
	}
	return nil
}

func (r *repository) Find(ctx context.Context, grantID int64) (*Grant, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT id, group_id, permission, created_at FROM group_permissions WHERE id = ?`, grantID)
	grant, err := scanGrant(row)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (r *repository) Remove(ctx context.Context, grantID int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM group_permissions WHERE id = ?`, grantID)
	if err != nil {
		return fmt.Errorf("removing grant %d: %w", grantID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing grant %d: %w", grantID, err)
	}
	if n == 0 {
		return apperror.NewNotFound("permission grant not found")
	}
	return nil
}

func (r *repository) GroupGrants(ctx context.Context, groupID int64) ([]Grant, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, group_id, permission, created_at FROM group_permissions WHERE group_id = ? ORDER BY permission`,
		groupID)
	if err != nil {
		return nil, fmt.Errorf("listing grants for group %d: %w", groupID, err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var raw string
		if err := rows.Scan(&g.ID, &g.GroupID, &raw, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		g.Key = Key(raw)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *repository) EffectiveCapabilities(ctx context.Context, userID int64) (Set, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT DISTINCT gp.permission
		FROM group_permissions gp
		INNER JOIN user_groups ug ON ug.group_id = gp.group_id
		WHERE ug.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving capabilities for user %d: %w", userID, err)
	}
	defer rows.Close()

	set := NewSet()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning capability: %w", err)
		}
		set[Key(raw)] = struct{}{}
	}
	return set, rows.Err()
}

func scanGrant(row *sql.Row) (*Grant, error) {
	var g Grant
	var raw string
	err := row.Scan(&g.ID, &g.GroupID, &raw, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("permission grant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning grant: %w", err)
	}
	g.Key = Key(raw)
	return &g, nil
}
