// Package database provides the storage access layer for userbase: a
// dialect-agnostic Connector contract over database/sql, concrete postgres
// and mysql connectors, a singleton-per-configuration Manager that owns
// pool lifecycle, and the startup migration runner.
//
// All SQL in the application is written with `?` placeholders and
// parameterized values only. The postgres connector rewrites placeholders
// to the $n form the driver expects; mysql passes them through.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrTxInProgress is returned when Begin is called on a handle that already
// has an open transaction. Transactions never nest silently.
var ErrTxInProgress = errors.New("database: transaction already in progress on this handle")

// Querier is the read/write query surface shared by pool-level access,
// dedicated handles, and open transactions. Repositories are written
// against this interface so the same SQL runs inside and outside a
// transaction.
type Querier interface {
	// Query executes a parameterized query and returns all rows.
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// QueryRow executes a parameterized query expected to return at most
	// one row. Scanning the result yields sql.ErrNoRows when no row matched.
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row

	// Exec executes a parameterized statement.
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Connector is the database collaborator contract. One Connector wraps one
// connection pool for one configuration tuple.
type Connector interface {
	Querier

	// Type returns the dialect name: "postgres" or "mysql".
	Type() string

	// DB exposes the underlying pool for collaborators that need it
	// directly (the migration runner).
	DB() *sql.DB

	// Acquire checks a dedicated connection handle out of the pool. The
	// caller must Close it. Handles are where explicit transactions live.
	Acquire(ctx context.Context) (*Handle, error)

	// WithTx runs fn inside a transaction. A nil return commits; any error
	// (or panic) rolls back before propagating. All-or-nothing.
	WithTx(ctx context.Context, fn func(tx Querier) error) error

	// Ping verifies the pool can reach the database.
	Ping(ctx context.Context) error

	// Close drains the pool.
	Close() error
}

// connector is the shared Connector implementation. The dialect-specific
// Open functions differ only in DSN construction and placeholder rebinding.
type connector struct {
	db     *sql.DB
	typ    string
	rebind func(string) string
}

func (c *connector) Type() string { return c.typ }
func (c *connector) DB() *sql.DB  { return c.db }

func (c *connector) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, c.rebind(query), args...)
}

func (c *connector) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.rebind(query), args...)
}

func (c *connector) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.rebind(query), args...)
}

func (c *connector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *connector) Close() error {
	return c.db.Close()
}

// Acquire checks a dedicated connection out of the pool and wraps it in a
// Handle.
func (c *connector) Acquire(ctx context.Context) (*Handle, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &Handle{conn: conn, rebind: c.rebind}, nil
}

// WithTx runs fn inside a transaction on a pool connection. The transaction
// is rolled back if fn returns an error or panics, committed otherwise.
func (c *connector) WithTx(ctx context.Context, fn func(tx Querier) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txQuerier{tx: tx, rebind: c.rebind}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// txQuerier adapts *sql.Tx to the Querier interface with rebinding.
type txQuerier struct {
	tx     *sql.Tx
	rebind func(string) string
}

func (t *txQuerier) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.rebind(query), args...)
}

func (t *txQuerier) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.rebind(query), args...)
}

func (t *txQuerier) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.rebind(query), args...)
}

// Handle is a dedicated connection checked out of the pool, with explicit
// transaction control. At most one transaction may be open on a handle at a
// time; a second Begin fails fast with ErrTxInProgress instead of nesting.
type Handle struct {
	mu     sync.Mutex
	conn   *sql.Conn
	tx     *sql.Tx
	rebind func(string) string
}

// Begin opens a transaction on the handle. Fails fast if one is already open.
func (h *Handle) Begin(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tx != nil {
		return ErrTxInProgress
	}

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	h.tx = tx
	return nil
}

// Commit commits the open transaction.
func (h *Handle) Commit() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tx == nil {
		return errors.New("database: no transaction in progress")
	}
	err := h.tx.Commit()
	h.tx = nil
	return err
}

// Rollback aborts the open transaction. Rolling back with no transaction
// open is a no-op so deferred cleanup stays simple.
func (h *Handle) Rollback() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tx == nil {
		return nil
	}
	err := h.tx.Rollback()
	h.tx = nil
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Query executes inside the open transaction if one exists, directly on the
// connection otherwise.
func (h *Handle) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	h.mu.Lock()
	tx := h.tx
	h.mu.Unlock()

	if tx != nil {
		return tx.QueryContext(ctx, h.rebind(query), args...)
	}
	return h.conn.QueryContext(ctx, h.rebind(query), args...)
}

// QueryRow executes inside the open transaction if one exists.
func (h *Handle) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	h.mu.Lock()
	tx := h.tx
	h.mu.Unlock()

	if tx != nil {
		return tx.QueryRowContext(ctx, h.rebind(query), args...)
	}
	return h.conn.QueryRowContext(ctx, h.rebind(query), args...)
}

// Exec executes inside the open transaction if one exists.
func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	h.mu.Lock()
	tx := h.tx
	h.mu.Unlock()

	if tx != nil {
		return tx.ExecContext(ctx, h.rebind(query), args...)
	}
	return h.conn.ExecContext(ctx, h.rebind(query), args...)
}

// Close rolls back any open transaction and returns the connection to the
// pool.
func (h *Handle) Close() error {
	h.Rollback()
	return h.conn.Close()
}

// rebindPostgres rewrites `?` placeholders to the $1..$n form lib/pq
// expects. Question marks inside single-quoted string literals are left
// alone; the application never embeds values in SQL text, so literals are
// rare, but constants like `'a?'` must not be mangled.
func rebindPostgres(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inLiteral = !inLiteral
			b.WriteByte(ch)
		case ch == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// rebindNoop returns the query unchanged (mysql uses `?` natively).
func rebindNoop(query string) string { return query }
