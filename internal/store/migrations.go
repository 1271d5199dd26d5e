package store

import (
	"context"
	"fmt"
)

// The current_state table holds at most one row, pinned to slot 1. The
// version column backs the compare-and-swap in UpsertCurrentState.

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS admin_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'VIEWER',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_login_at DATETIME
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		source_device_id TEXT NOT NULL,
		bridge_state TEXT NOT NULL,
		bridge_confidence REAL NOT NULL,
		timestamp DATETIME NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_source_device ON events(source_device_id)`,

	`CREATE TABLE IF NOT EXISTS current_state (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		state_id TEXT NOT NULL,
		bridge_state TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		last_event_id TEXT NOT NULL REFERENCES events(event_id),
		version INTEGER NOT NULL DEFAULT 1
	)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS admin_users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(64) UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'VIEWER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		event_id VARCHAR(255) PRIMARY KEY,
		source_device_id VARCHAR(255) NOT NULL,
		bridge_state VARCHAR(16) NOT NULL,
		bridge_confidence DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_source_device ON events(source_device_id)`,

	`CREATE TABLE IF NOT EXISTS current_state (
		slot SMALLINT PRIMARY KEY CHECK (slot = 1),
		state_id VARCHAR(36) NOT NULL,
		bridge_state VARCHAR(16) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		last_event_id VARCHAR(255) NOT NULL REFERENCES events(event_id),
		version BIGINT NOT NULL DEFAULT 1
	)`,
}

var mysqlMigrations = []string{
	`CREATE TABLE IF NOT EXISTS admin_users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'VIEWER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		last_login_at DATETIME(6) NULL
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		event_id VARCHAR(255) PRIMARY KEY,
		source_device_id VARCHAR(255) NOT NULL,
		bridge_state VARCHAR(16) NOT NULL,
		bridge_confidence DOUBLE NOT NULL,
		timestamp DATETIME(6) NOT NULL,
		INDEX idx_events_timestamp (timestamp),
		INDEX idx_events_source_device (source_device_id)
	)`,

	`CREATE TABLE IF NOT EXISTS current_state (
		slot TINYINT PRIMARY KEY CHECK (slot = 1),
		state_id VARCHAR(36) NOT NULL,
		bridge_state VARCHAR(16) NOT NULL,
		timestamp DATETIME(6) NOT NULL,
		last_event_id VARCHAR(255) NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		CONSTRAINT fk_current_state_event FOREIGN KEY (last_event_id) REFERENCES events(event_id)
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	var migrations []string
	switch s.dialect {
	case DialectPostgres:
		migrations = postgresMigrations
	case DialectMySQL:
		migrations = mysqlMigrations
	default:
		migrations = sqliteMigrations
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
