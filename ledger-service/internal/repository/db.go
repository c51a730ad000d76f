package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed migrations
var migrationsFS embed.FS

// Dialect selects the SQL flavour of the write store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ErrConflict marks a transaction aborted by the database because of a
// concurrent writer (serialization failure, deadlock, busy database). The
// whole unit of work may be retried.
var ErrConflict = errors.New("concurrent update conflict")

// ParseDialect validates a DATABASE_DRIVER value.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// Open connects to the write store and pings it.
//
// SQLite databases are opened with foreign keys on, immediate write
// transactions and a single connection, so writers queue instead of failing.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case Postgres:
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			db.SetMaxOpenConns(20)
			db.SetMaxIdleConns(10)
			db.SetConnMaxLifetime(time.Hour)
		}
	case SQLite:
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// sqliteOption is a DSN parameter the store relies on. Forced options replace
// whatever the DSN says; the rest are defaults the DSN may override.
type sqliteOption struct {
	name   string
	param  string
	forced bool
}

var sqliteOptions = []sqliteOption{
	{name: "foreign_keys", param: "_pragma=foreign_keys(1)", forced: true},
	{name: "_txlock", param: "_txlock=immediate", forced: true},
	{name: "busy_timeout", param: "_pragma=busy_timeout(5000)"},
	{name: "journal_mode", param: "_pragma=journal_mode(WAL)"},
}

// sqliteDSN adds the store's connection options to path, keeping any other
// parameters the caller set.
func sqliteDSN(dsn string) string {
	path, query, _ := strings.Cut(dsn, "?")

	var params []string
	if query != "" {
		params = strings.Split(query, "&")
	}
	for _, opt := range sqliteOptions {
		kept := params[:0]
		found := false
		for _, p := range params {
			if sqliteOptionName(p) != opt.name {
				kept = append(kept, p)
				continue
			}
			found = true
			if !opt.forced {
				kept = append(kept, p)
			}
		}
		params = kept
		if opt.forced || !found {
			params = append(params, opt.param)
		}
	}
	return path + "?" + strings.Join(params, "&")
}

// sqliteOptionName returns the pragma name of a _pragma parameter, or the
// key of any other parameter.
func sqliteOptionName(param string) string {
	if unescaped, err := url.QueryUnescape(param); err == nil {
		param = unescaped
	}
	key, value, _ := strings.Cut(param, "=")
	if key != "_pragma" {
		return key
	}
	value = strings.TrimSpace(strings.ToLower(value))
	if i := strings.IndexAny(value, "(="); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

// Migrate applies the embedded schema for dialect. For Postgres dsn must be a
// postgres:// URL; for SQLite it is the database file path.
func Migrate(dialect Dialect, dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var url string
	switch dialect {
	case Postgres:
		url = dsn
	case SQLite:
		url = "sqlite://" + dsn
	default:
		return fmt.Errorf("unsupported database driver %q", dialect)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Setup migrates the schema and opens a connection pool.
func Setup(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if err := Migrate(dialect, dsn); err != nil {
		return nil, err
	}
	return Open(ctx, dialect, dsn)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// wrap tags conflicts with ErrConflict and annotates everything else.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
