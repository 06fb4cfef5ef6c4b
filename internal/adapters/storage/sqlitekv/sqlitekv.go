// Package sqlitekv stores key-value namespaces in a SQLite file. Every Put
// replaces the whole value of a key in a single statement, which is the only
// atomicity the embedded backend relies on.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Namespace struct {
	db   *sql.DB
	name string
}

// Open opens (or creates) the database at path and scopes all keys to
// namespace. Use ":memory:" for a throwaway store.
func Open(path, namespace string) (*Namespace, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, errors.New("sqlitekv: empty namespace")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	n := &Namespace{db: db, name: namespace}
	if err := n.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitekv: migrate: %w", err)
	}
	return n, nil
}

func (n *Namespace) migrate() error {
	_, err := n.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv_entries (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	)`)
	return err
}

func (n *Namespace) Close() error {
	return n.db.Close()
}

func (n *Namespace) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := n.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`, n.name, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitekv: get %q: %w", key, err)
	}
	return v, true, nil
}

func (n *Namespace) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := n.db.ExecContext(ctx, `
	INSERT INTO kv_entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		n.name, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlitekv: put %q: %w", key, err)
	}
	return nil
}
