// Package dataaccess opens the Postgres connection the service reports on
// in its health check.
package dataaccess

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	_ "github.com/lib/pq"
)

const (
	connectAttempts = 5
	connectInterval = 2 * time.Second
)

// Config holds the connection options.
//
//	Host, Port       server address
//	User, Password   credentials
//	Database         database name
//	Version          expected server version prefix, e.g. "12"; empty skips the check
//	SSLMode          lib/pq sslmode, "disable" when empty
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Version  string
	SSLMode  string
}

// DSN renders the config as a lib/pq keyword/value connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	pairs := []string{
		"host=" + quote(c.Host),
		fmt.Sprintf("port=%d", c.Port),
		"user=" + quote(c.User),
		"password=" + quote(c.Password),
		"dbname=" + quote(c.Database),
		"sslmode=" + quote(sslMode),
	}
	return strings.Join(pairs, " ")
}

// quote wraps values containing spaces, quotes or backslashes the way
// lib/pq expects.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.Replace(v, `\`, `\\`, -1)
	v = strings.Replace(v, `'`, `\'`, -1)
	return "'" + v + "'"
}

// DB is an open, verified connection.
type DB struct {
	db *sql.DB
}

// StartConnection opens the database and pings it until it answers, ctx is
// done, or the attempts run out. A server version other than cfg.Version is
// logged, not rejected.
func StartConnection(ctx context.Context, cfg Config, logger log.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %v", err)
	}

	for i := 1; ; i++ {
		if err = db.PingContext(ctx); err == nil {
			level.Info(logger).Log("db", cfg.Host, "connected", true, "attempts", i)
			break
		}
		level.Warn(logger).Log("db", cfg.Host, "attempt", i, "err", err)
		if i == connectAttempts {
			db.Close()
			return nil, fmt.Errorf("failed to connect to db after %d attempts: %v", connectAttempts, err)
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(connectInterval):
		}
	}

	if cfg.Version != "" {
		var serverVersion string
		if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&serverVersion); err != nil {
			level.Warn(logger).Log("db", cfg.Host, "server_version", "unknown", "err", err)
		} else if !versionMatches(serverVersion, cfg.Version) {
			level.Warn(logger).Log("db", cfg.Host, "server_version", serverVersion, "expected", cfg.Version)
		}
	}

	return &DB{db: db}, nil
}

// Ping checks the connection is still alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// versionMatches reports whether server starts with want on a version
// component boundary, so "12" matches "12.4" but not "120.1".
func versionMatches(server, want string) bool {
	if !strings.HasPrefix(server, want) {
		return false
	}
	rest := server[len(want):]
	return rest == "" || rest[0] == '.' || rest[0] == ' '
}
