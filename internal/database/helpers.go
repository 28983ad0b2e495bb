package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// IsUniqueViolation reports whether err is a unique-constraint violation in
// either dialect (postgres SQLSTATE 23505, mysql error 1062). Mutations
// rely on the store's unique constraints to prevent duplicate rows under
// race; this is how the violation is recognized and mapped to a conflict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

// InsertID executes an INSERT written without a RETURNING clause and yields
// the generated id, papering over the dialect split: lib/pq does not
// implement LastInsertId, and mysql has no RETURNING. The query must target
// a table whose primary key column is named id.
func InsertID(ctx context.Context, q Querier, dialect, query string, args ...any) (int64, error) {
	if dialect == "postgres" {
		var id int64
		if err := q.QueryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading generated id: %w", err)
	}
	return id, nil
}
