// Package sqlite persists history values in a SQLite key-value table.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Medium is a namespaced key-value table. All methods are safe for
// concurrent use (SQLite serializes writes).
type Medium struct {
	db        *sql.DB
	namespace string
}

const defaultNamespace = "history"

// Open opens or creates the database at dbPath. The schema is created on
// first use.
func Open(dbPath string) (*Medium, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	m := &Medium{db: db, namespace: defaultNamespace}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}

func (m *Medium) Close() error {
	return m.db.Close()
}

func (m *Medium) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_state (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	`
	_, err := m.db.Exec(schema)
	return err
}

// Read returns nil data and a nil error when the key does not exist.
func (m *Medium) Read(key string) ([]byte, error) {
	var value string
	err := m.db.QueryRow(
		`SELECT value FROM kv_state WHERE namespace = ? AND key = ?`,
		m.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return []byte(value), nil
}

// Write upserts the value and refreshes its updated_at timestamp.
func (m *Medium) Write(key string, data []byte) error {
	_, err := m.db.Exec(
		`INSERT INTO kv_state (namespace, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		m.namespace, key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written, or the zero time if it was
// never written.
func (m *Medium) UpdatedAt(key string) (time.Time, error) {
	var raw string
	err := m.db.QueryRow(
		`SELECT updated_at FROM kv_state WHERE namespace = ? AND key = ?`,
		m.namespace, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("updated_at %s: %w", key, err)
	}
	return time.Parse(time.RFC3339, raw)
}
