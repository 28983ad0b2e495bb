package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/database"
)

// Repository defines the data access contract for groups and memberships.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	Create(ctx context.Context, name, description string, isPublic bool) (*Group, error)
	CreateTx(ctx context.Context, tx database.Querier, name, description string, isPublic bool) (int64, error)
	FindByID(ctx context.Context, id int64) (*Group, error)
	FindByName(ctx context.Context, name string) (*Group, error)
	FindByNameTx(ctx context.Context, tx database.Querier, name string) (int64, bool, error)
	Update(ctx context.Context, id int64, name, description *string, isPublic *bool) (*Group, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, publicOnly bool) ([]Group, error)

	// Memberships.
	AddMember(ctx context.Context, groupID, userID int64) error
	AddMemberTx(ctx context.Context, tx database.Querier, groupID, userID int64) error
	RemoveMember(ctx context.Context, groupID, userID int64) error
	Members(ctx context.Context, groupID int64) ([]Member, error)
	UserGroups(ctx context.Context, userID int64, publicOnly bool) ([]Group, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
	CountMembers(ctx context.Context, groupID int64) (int, error)
}

// repository implements Repository with hand-written parameterized SQL.
type repository struct {
	conn database.Connector
}

// NewRepository creates a group repository backed by the given connector.
func NewRepository(conn database.Connector) Repository {
	return &repository{conn: conn}
}

// Create inserts a new group row. A duplicate name maps to a conflict.
func (r *repository) Create(ctx context.Context, name, description string, isPublic bool) (*Group, error) {
	query := `INSERT INTO app_groups (name, description, is_public, created_at, updated_at)
	          VALUES (?, ?, ?, NOW(), NOW())`

	id, err := database.InsertID(ctx, r.conn, r.conn.Type(), query, name, description, isPublic)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.NewConflict("a group with this name already exists")
		}
		return nil, fmt.Errorf("inserting group: %w", err)
	}

	return r.FindByID(ctx, id)
}

// CreateTx inserts a new group inside an open transaction and returns its id.
func (r *repository) CreateTx(ctx context.Context, tx database.Querier, name, description string, isPublic bool) (int64, error) {
	query := `INSERT INTO app_groups (name, description, is_public, created_at, updated_at)
	          VALUES (?, ?, ?, NOW(), NOW())`

	id, err := database.InsertID(ctx, tx, r.conn.Type(), query, name, description, isPublic)
	if err != nil {
		return 0, fmt.Errorf("inserting group: %w", err)
	}
	return id, nil
}

// FindByID retrieves a group by id. Returns apperror.NotFound if absent.
func (r *repository) FindByID(ctx context.Context, id int64) (*Group, error) {
	query := `SELECT id, name, description, is_public, created_at, updated_at
	          FROM app_groups WHERE id = ?`
	return r.scanGroup(r.conn.QueryRow(ctx, query, id))
}

// FindByName retrieves a group by its unique name.
func (r *repository) FindByName(ctx context.Context, name string) (*Group, error) {
	query := `SELECT id, name, description, is_public, created_at, updated_at
	          FROM app_groups WHERE name = ?`
	return r.scanGroup(r.conn.QueryRow(ctx, query, name))
}

// FindByNameTx looks up a group id by name inside an open transaction.
func (r *repository) FindByNameTx(ctx context.Context, tx database.Querier, name string) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM app_groups WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying group by name: %w", err)
	}
	return id, true, nil
}

func (r *repository) scanGroup(row *sql.Row) (*Group, error) {
	g := &Group{}
	var description sql.NullString
	err := row.Scan(&g.ID, &g.Name, &description, &g.IsPublic, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning group: %w", err)
	}
	g.Description = description.String
	return g, nil
}

// Update applies the provided fields to a group. Nil pointers leave the
// column untouched. The protected-group policy is enforced by the service;
// this method only persists.
func (r *repository) Update(ctx context.Context, id int64, name, description *string, isPublic *bool) (*Group, error) {
	sets := "updated_at = NOW()"
	args := []any{}

	if name != nil {
		sets += ", name = ?"
		args = append(args, *name)
	}
	if description != nil {
		sets += ", description = ?"
		args = append(args, *description)
	}
	if isPublic != nil {
		sets += ", is_public = ?"
		args = append(args, *isPublic)
	}
	args = append(args, id)

	result, err := r.conn.Exec(ctx, "UPDATE app_groups SET "+sets+" WHERE id = ?", args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.NewConflict("a group with this name already exists")
		}
		return nil, fmt.Errorf("updating group: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-change
		// update on mysql; confirm via lookup.
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	return r.FindByID(ctx, id)
}

// Delete removes a group. Memberships and grants cascade via foreign keys.
func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM app_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("group not found")
	}
	return nil
}

// List returns all groups (or only public ones) with member counts, ordered
// by name.
func (r *repository) List(ctx context.Context, publicOnly bool) ([]Group, error) {
	query := `SELECT g.id, g.name, g.description, g.is_public, g.created_at, g.updated_at,
	                 COUNT(ug.user_id) AS member_count
	          FROM app_groups g
	          LEFT JOIN user_groups ug ON ug.group_id = g.id`
	if publicOnly {
		query += ` WHERE g.is_public = TRUE`
	}
	query += ` GROUP BY g.id, g.name, g.description, g.is_public, g.created_at, g.updated_at
	           ORDER BY g.name`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		var description sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &description, &g.IsPublic, &g.CreatedAt, &g.UpdatedAt, &g.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		g.Description = description.String
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddMember inserts a membership row. Idempotent: adding an existing member
// is a no-op, relying on the (user_id, group_id) primary key.
func (r *repository) AddMember(ctx context.Context, groupID, userID int64) error {
	return r.AddMemberTx(ctx, r.conn, groupID, userID)
}

// AddMemberTx is AddMember inside an open transaction. The upsert is
// conflict-safe in the dialect's own syntax rather than by catching the
// unique violation: a violation inside a postgres transaction would abort
// the whole transaction.
func (r *repository) AddMemberTx(ctx context.Context, tx database.Querier, groupID, userID int64) error {
	var query string
	if r.conn.Type() == "postgres" {
		query = `INSERT INTO user_groups (user_id, group_id, created_at) VALUES (?, ?, NOW())
		         ON CONFLICT (user_id, group_id) DO NOTHING`
	} else {
		query = `INSERT IGNORE INTO user_groups (user_id, group_id, created_at) VALUES (?, ?, NOW())`
	}

	if _, err := tx.Exec(ctx, query, userID, groupID); err != nil {
		return fmt.Errorf("adding group member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row. Removing an absent member is a
// no-op, not an error.
func (r *repository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	_, err := r.conn.Exec(ctx,
		`DELETE FROM user_groups WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("removing group member: %w", err)
	}
	return nil
}

// Members returns the group's membership roster joined with user display
// fields, ordered by username.
func (r *repository) Members(ctx context.Context, groupID int64) ([]Member, error) {
	query := `SELECT u.id, u.username, u.email, ug.created_at
	          FROM user_groups ug
	          INNER JOIN users u ON u.id = ug.user_id
	          WHERE ug.group_id = ?
	          ORDER BY u.username`

	rows, err := r.conn.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Email, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UserGroups returns the groups a user belongs to, optionally restricted to
// public ones.
func (r *repository) UserGroups(ctx context.Context, userID int64, publicOnly bool) ([]Group, error) {
	query := `SELECT g.id, g.name, g.description, g.is_public, g.created_at, g.updated_at
	          FROM app_groups g
	          INNER JOIN user_groups ug ON ug.group_id = g.id
	          WHERE ug.user_id = ?`
	if publicOnly {
		query += ` AND g.is_public = TRUE`
	}
	query += ` ORDER BY g.name`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user groups: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		var description sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &description, &g.IsPublic, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		g.Description = description.String
		out = append(out, g)
	}
	return out, rows.Err()
}

// IsMember reports whether the user belongs to the group.
func (r *repository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_groups WHERE group_id = ? AND user_id = ?)`,
		groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

// CountMembers returns the number of users in the group.
func (r *repository) CountMembers(ctx context.Context, groupID int64) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_groups WHERE group_id = ?`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting group members: %w", err)
	}
	return count, nil
}
