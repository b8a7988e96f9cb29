// Package db opens the SQL database backing the directory and role store.
// Postgres (pgx) and SQLite (modernc, pure Go) are supported.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "pgx"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// DB is a *sql.DB that remembers its driver for placeholder rewriting.
type DB struct {
	*sql.DB
	Driver Driver
}

// ParseDSN maps a database URL to a driver and a database/sql DSN.
// Accepted forms: postgres://..., postgresql://..., sqlite://path.db,
// sqlite://:memory: and a bare file path.
func ParseDSN(databaseURL string) (Driver, string) {
	switch {
	case databaseURL == "":
		return DriverSQLite, "file:trustgate.db?mode=rwc&" + sqlitePragmas
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, databaseURL
	}

	path := databaseURL
	if rest, ok := strings.CutPrefix(databaseURL, "sqlite://"); ok {
		path = strings.TrimPrefix(rest, "/")
	}
	if path == ":memory:" {
		return DriverSQLite, "file::memory:?" + sqlitePragmas
	}
	return DriverSQLite, fmt.Sprintf("file:%s?mode=rwc&%s", path, sqlitePragmas)
}

// Open connects and pings the database.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	driver, dsn := ParseDSN(databaseURL)
	sqldb, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// a second connection to an in-memory database would see an empty schema
		sqldb.SetMaxOpenConns(1)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: sqldb, Driver: driver}, nil
}

// Rebind rewrites '?' placeholders to $n for Postgres.
func (d *DB) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
