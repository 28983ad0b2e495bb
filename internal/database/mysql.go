package database

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/kleineLoesungen/userbase/internal/config"
)

// NewMySQL creates a MySQL/MariaDB connection pool configured with the
// settings from the provided config. It pings the database to verify
// connectivity before returning.
func NewMySQL(cfg config.DatabaseConfig) (Connector, error) {
	db, err := sql.Open("mysql", mysqlDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}

	configurePool(db, cfg)

	if err := pingWithRetry(db, "mysql"); err != nil {
		db.Close()
		return nil, err
	}

	return &connector{db: db, typ: "mysql", rebind: rebindNoop}, nil
}

// mysqlDSN builds the go-sql-driver DSN using the driver's own
// Config.FormatDSN() to safely handle special characters in passwords.
// ParseTime makes DATETIME columns scan into time.Time.
func mysqlDSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.MultiStatements = true
	return mc.FormatDSN()
}
