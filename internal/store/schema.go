// Package store provides the SQLite-backed idea repository, with optional
// FTS5 keyword matching.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS ideas (
	idea_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	body       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status);

CREATE TABLE IF NOT EXISTS tags (
	tag_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	path      TEXT NOT NULL DEFAULT '',
	parent_id INTEGER REFERENCES tags(tag_id) ON DELETE SET NULL,
	UNIQUE(name, path)
);

CREATE TABLE IF NOT EXISTS idea_tags (
	idea_id INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
	tag_id  INTEGER NOT NULL REFERENCES tags(tag_id) ON DELETE CASCADE,
	ord     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (idea_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_idea_tags_tag ON idea_tags(tag_id);

CREATE TABLE IF NOT EXISTS idea_blockers (
	idea_id INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
	ord     INTEGER NOT NULL,
	text    TEXT NOT NULL,
	PRIMARY KEY (idea_id, ord)
);

CREATE TABLE IF NOT EXISTS idea_links (
	idea_id        INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
	linked_idea_id INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
	link_type      TEXT NOT NULL DEFAULT 'born_with',
	created_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	PRIMARY KEY (idea_id, linked_idea_id, link_type),
	CHECK (idea_id <> linked_idea_id)
);

CREATE INDEX IF NOT EXISTS idx_idea_links_linked ON idea_links(linked_idea_id, link_type);
`

// Store wraps a sql.DB with idea-specific operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping reports whether the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}
