// Package store persists named rulesets and rule definitions so a REPL
// session's simplification rules survive a restart. It is a pluggable,
// DSN-driven store over database/sql, picking its driver from the DSN's
// scheme the way a connection string is normally routed in this codebase.
//
// Adapted from sentra's internal/database.DBManager: the same
// open-a-sql.DB-behind-a-mutex-guarded-struct shape and blank-import
// driver registration, narrowed from sentra's multi-connection manager to
// a single store scoped to one DSN (this module persists rule text, not
// arbitrary user queries).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Record is one persisted rule: its rule-text source plus the name of the
// ruleset it belongs to ("" for the default/active ruleset).
type Record struct {
	ID        string
	Ruleset   string
	Text      string
	CreatedAt time.Time
}

// Store wraps a single database/sql connection pool, guarded so concurrent
// REPL/websocket-server use is safe.
type Store struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

// driverFor maps a DSN scheme (e.g. "postgres://", "mysql://",
// "sqlserver://") to its database/sql driver name. DSNs without a
// recognised scheme are assumed to be sqlite file paths.
func driverFor(dsn string) (driverName, trimmedDSN string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn
	case strings.HasPrefix(dsn, "mysql://"):
		return "mysql", strings.TrimPrefix(dsn, "mysql://")
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://")
	default:
		return "sqlite", dsn
	}
}

// Open opens (and, for sqlite, creates if necessary) the store at dsn and
// ensures its schema exists.
func Open(dsn string) (*Store, error) {
	driverName, trimmed := driverFor(dsn)
	db, err := sql.Open(driverName, trimmed)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, driver: driverName}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rules (
			id         TEXT PRIMARY KEY,
			ruleset    TEXT NOT NULL,
			text       TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveRule inserts a new rule record under ruleset and returns its
// generated ID.
func (s *Store) SaveRule(ctx context.Context, ruleset, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (id, ruleset, text, created_at) VALUES (?, ?, ?, ?)`,
		id, ruleset, text, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("store: save rule: %w", err)
	}
	return id, nil
}

// ListRules returns every rule recorded under ruleset, oldest first.
func (s *Store) ListRules(ctx context.Context, ruleset string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ruleset, text, created_at FROM rules WHERE ruleset = ? ORDER BY created_at ASC`,
		ruleset)
	if err != nil {
		return nil, fmt.Errorf("store: list rules: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Ruleset, &r.Text, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteRule removes a single rule record by ID.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("store: no rule with id %q", id)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
