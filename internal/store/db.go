// Package store provides the SQLite persistence layer for the agent
// control plane: agents and their org hierarchy, tasks, schedules,
// message records, and the append-only audit log.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

// stmtCacheSize bounds the number of cached prepared statements.
const stmtCacheSize = 64

// DB wraps an SQLite database connection with control-plane operations.
type DB struct {
	conn   *sql.DB
	path   string
	mu     sync.RWMutex
	stmtMu sync.Mutex
	stmts  *lru.Cache[string, *sql.Stmt]
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Recursive triggers keep the audit append-only triggers honest even
	// when rows change through other triggers.
	if _, err := conn.Exec("PRAGMA recursive_triggers=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable recursive triggers: %w", err)
	}

	stmts, err := lru.NewWithEvict[string, *sql.Stmt](stmtCacheSize, func(_ string, stmt *sql.Stmt) {
		stmt.Close()
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create statement cache: %w", err)
	}

	return &DB{
		conn:  conn,
		path:  path,
		stmts: stmts,
	}, nil
}

// Close closes the database connection and cached statements.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stmts.Purge()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// stmt returns a cached prepared statement for query, preparing and
// caching it on first use.
func (db *DB) stmt(query string) (*sql.Stmt, error) {
	db.stmtMu.Lock()
	defer db.stmtMu.Unlock()

	if s, ok := db.stmts.Get(query); ok {
		return s, nil
	}
	s, err := db.conn.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	db.stmts.Add(query, s)
	return s, nil
}

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, err := db.stmt(query)
	if err != nil {
		return nil, err
	}
	return s.Exec(args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, err := db.stmt(query)
	if err != nil {
		return nil, err
	}
	return s.Query(args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, err := db.stmt(query)
	if err != nil {
		// Fall through to the connection so the caller still gets a
		// scannable row carrying the error.
		return db.conn.QueryRow(query, args...)
	}
	return s.QueryRow(args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Agents},
		{2, migrationV2Tasks},
		{3, migrationV3Schedules},
		{4, migrationV4Messages},
		{5, migrationV5AuditLog},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Agents = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	role TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	created_by TEXT,
	reporting_to TEXT REFERENCES agents(id),
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','paused','fired')),
	main_goal TEXT NOT NULL DEFAULT '',
	config_path TEXT NOT NULL DEFAULT '',
	last_execution_at DATETIME,
	total_executions INTEGER NOT NULL DEFAULT 0,
	total_runtime_minutes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_agents_status ON agents(status);
CREATE INDEX IF NOT EXISTS idx_agents_reporting_to ON agents(reporting_to);

CREATE TABLE IF NOT EXISTS org_hierarchy (
	agent_id TEXT NOT NULL REFERENCES agents(id),
	ancestor_id TEXT NOT NULL REFERENCES agents(id),
	depth INTEGER NOT NULL CHECK (depth >= 0),
	path TEXT NOT NULL,
	PRIMARY KEY (agent_id, ancestor_id)
);

CREATE INDEX IF NOT EXISTS idx_org_hierarchy_ancestor ON org_hierarchy(ancestor_id);
`

const migrationV2Tasks = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL REFERENCES agents(id),
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','in_progress','blocked','completed','archived')),
	priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('urgent','high','medium','low')),
	created_at DATETIME NOT NULL,
	started_at DATETIME,
	completed_at DATETIME,
	parent_task_id TEXT REFERENCES tasks(id),
	depth INTEGER NOT NULL DEFAULT 0 CHECK (depth >= 0 AND depth <= 5),
	percent_complete INTEGER NOT NULL DEFAULT 0 CHECK (percent_complete >= 0 AND percent_complete <= 100),
	subtasks_completed INTEGER NOT NULL DEFAULT 0,
	subtasks_total INTEGER NOT NULL DEFAULT 0,
	delegated_to TEXT REFERENCES agents(id),
	delegated_at DATETIME,
	blocked_by TEXT,
	blocked_since DATETIME,
	task_path TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 0,
	last_updated DATETIME,
	last_executed DATETIME,
	execution_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_agent_id ON tasks(agent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id);
`

const migrationV3Schedules = `
CREATE TABLE IF NOT EXISTS schedules (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL REFERENCES agents(id),
	trigger_type TEXT NOT NULL CHECK (trigger_type IN ('continuous','cron','reactive')),
	description TEXT NOT NULL DEFAULT '',
	cron_expression TEXT,
	timezone TEXT,
	next_execution_at DATETIME,
	minimum_interval_seconds INTEGER NOT NULL DEFAULT 0,
	only_when_tasks_pending INTEGER NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1,
	last_triggered_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_schedules_agent_id ON schedules(agent_id);
CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON schedules(enabled);
`

const migrationV4Messages = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	from_agent_id TEXT NOT NULL,
	to_agent_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	priority TEXT NOT NULL DEFAULT 'normal' CHECK (priority IN ('low','normal','high','urgent')),
	channel TEXT NOT NULL DEFAULT 'internal' CHECK (channel IN ('internal','slack','telegram','email')),
	read INTEGER NOT NULL DEFAULT 0,
	action_required INTEGER NOT NULL DEFAULT 0,
	subject TEXT,
	thread_id TEXT,
	in_reply_to TEXT,
	message_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_to_agent ON messages(to_agent_id, read);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);
`

const migrationV5AuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	agent_id TEXT,
	action TEXT NOT NULL,
	target_agent_id TEXT,
	success INTEGER NOT NULL DEFAULT 1,
	details TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_log_agent_id ON audit_log(agent_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);

CREATE TRIGGER IF NOT EXISTS audit_log_no_update
AFTER UPDATE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'audit log rows are append-only');
END;

CREATE TRIGGER IF NOT EXISTS audit_log_no_delete
AFTER DELETE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'audit log rows are append-only');
END;
`

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite. Values written by this
// package are RFC3339; DEFAULT CURRENT_TIMESTAMP columns use SQLite's
// space-separated form.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullString converts an optional string to its SQL representation.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullTime converts an optional time to its SQL representation.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// stringOrNil converts possibly-empty strings to NULL.
func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
