package store

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL backend behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Options controls how Open connects to the database.
type Options struct {
	// URL selects the backend: postgres://, postgresql://, mysql:// or
	// sqlite://path. Empty means SQLite under DataDir.
	URL string
	// DataDir holds the SQLite file when URL is empty. Empty DataDir with
	// empty URL opens an in-memory database.
	DataDir string
	// MaxOpenConns caps the connection pool for server backends.
	MaxOpenConns int
}

// Store persists admins, events and the current bridge state.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// Open connects to the database described by opts and applies migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dialect, driver, dsn, err := resolveDSN(opts)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	switch dialect {
	case DialectSQLite:
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

		// Enable foreign keys (off by default in SQLite).
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	default:
		maxOpen := opts.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 10
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s database: %w", dialect, err)
	}
	return s, nil
}

// resolveDSN maps Options onto a dialect, a database/sql driver name and a
// driver-specific DSN.
func resolveDSN(opts Options) (Dialect, string, string, error) {
	raw := strings.TrimSpace(opts.URL)
	if raw == "" {
		if opts.DataDir == "" {
			return DialectSQLite, "sqlite", ":memory:?_journal_mode=WAL", nil
		}
		if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
			return "", "", "", fmt.Errorf("create data dir: %w", err)
		}
		dsn := filepath.Join(opts.DataDir, "hutch.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		return DialectSQLite, "sqlite", dsn, nil
	}

	if path, ok := strings.CutPrefix(raw, "file:"); ok {
		return sqliteFileDSN(path)
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", "", fmt.Errorf("database url %q has no scheme", raw)
	}

	switch scheme {
	case "postgres", "postgresql":
		return DialectPostgres, "pgx", raw, nil
	case "mysql":
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", "", fmt.Errorf("parse database url: %w", err)
		}
		return DialectMySQL, "mysql", mysqlDSN(u), nil
	case "sqlite", "sqlite3":
		return sqliteFileDSN(rest)
	default:
		return "", "", "", fmt.Errorf("unsupported database url scheme %q", scheme)
	}
}

func sqliteFileDSN(path string) (Dialect, string, string, error) {
	if path == "" || path == ":memory:" {
		return DialectSQLite, "sqlite", ":memory:?_journal_mode=WAL", nil
	}
	if !strings.Contains(path, "?") {
		path += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return DialectSQLite, "sqlite", path, nil
}

// mysqlDSN converts a mysql:// URL into the go-sql-driver DSN format. Times
// are always parsed into time.Time in UTC.
func mysqlDSN(u *url.URL) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// Dialect reports which SQL backend the store is connected to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into the bind style of the active driver.
func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}

// insertReturningID runs an INSERT and returns the generated integer key.
// MySQL has no RETURNING clause and reports the key through LastInsertId.
func (s *Store) insertReturningID(ctx context.Context, q string, args ...interface{}) (int64, error) {
	if s.dialect == DialectMySQL {
		result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}
	var id int64
	if err := s.db.QueryRowxContext(ctx, s.rebind(q+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
