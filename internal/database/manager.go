package database

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/kleineLoesungen/userbase/internal/config"
)

// Manager owns all open connection pools. At most one live pool exists per
// distinct (type, host, port, database, user) tuple; repeated Open calls
// with the same configuration return the existing Connector. The Manager is
// created once at process start, passed by reference to everything that
// needs a database, and drained at shutdown via CloseAll.
type Manager struct {
	mu    sync.Mutex
	pools map[string]Connector
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{pools: make(map[string]Connector)}
}

// Open returns the Connector for the given configuration, creating the pool
// on first use.
func (m *Manager) Open(cfg config.DatabaseConfig) (Connector, error) {
	key := configKey(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.pools[key]; ok {
		return conn, nil
	}

	var (
		conn Connector
		err  error
	)
	switch cfg.Type {
	case "postgres":
		conn, err = NewPostgres(cfg)
	case "mysql":
		conn, err = NewMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	m.pools[key] = conn
	slog.Info("database pool opened",
		slog.String("type", cfg.Type),
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
	)
	return conn, nil
}

// CloseAll drains every open pool. Called once during graceful shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for key, conn := range m.pools {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing pool %s: %w", key, err)
		}
		delete(m.pools, key)
	}
	return firstErr
}

// configKey derives the identity of a pool from its configuration tuple.
func configKey(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", cfg.Type, cfg.Host, cfg.Port, cfg.Name, cfg.User)
}
