package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kleineLoesungen/userbase/internal/apperror"
	"github.com/kleineLoesungen/userbase/internal/database"
)

// Repository is the persistence boundary for user accounts.
type Repository interface {
	Create(ctx context.Context, username string, email *string, passwordHash string) (*User, error)
	CreateTx(ctx context.Context, q database.Querier, username string, email *string, passwordHash string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountTx(ctx context.Context, q database.Querier) (int64, error)
	List(ctx context.Context) ([]User, error)
	UpdateEmail(ctx context.Context, id int64, email *string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	conn database.Connector
}

// NewRepository returns a Repository backed by the given database.
func NewRepository(conn database.Connector) Repository {
	return &repository{conn: conn}
}

const userColumns = `id, username, email, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) Create(ctx context.Context, username string, email *string, passwordHash string) (*User, error) {
	return r.CreateTx(ctx, r.conn, username, email, passwordHash)
}

func (r *repository) CreateTx(ctx context.Context, q database.Querier, username string, email *string, passwordHash string) (*User, error) {
	id, err := database.InsertID(ctx, q, r.conn.Type(),
		`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`,
		username, email, passwordHash)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.NewConflict("username or email already in use")
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	row := q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("reading back user %d: %w", id, err)
	}
	return u, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %d: %w", id, err)
	}
	return u, nil
}

func (r *repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %q: %w", username, err)
	}
	return u, nil
}

func (r *repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking username: %w", err)
	}
	return n > 0, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return n > 0, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	return r.CountTx(ctx, r.conn)
}

func (r *repository) CountTx(ctx context.Context, q database.Querier) (int64, error) {
	var n int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (r *repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *repository) UpdateEmail(ctx context.Context, id int64, email *string) error {
	_, err := r.conn.Exec(ctx, `UPDATE users SET email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, email, id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.NewConflict("email already in use")
		}
		return fmt.Errorf("updating email for user %d: %w", id, err)
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.conn.Exec(ctx, `UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", id, err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}
