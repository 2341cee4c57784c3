package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/notewright/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS indices (
	name     TEXT PRIMARY KEY,
	nested   INTEGER NOT NULL DEFAULT 0,
	level    INTEGER NOT NULL DEFAULT 0,
	parents  TEXT NOT NULL DEFAULT '[]',
	children TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS entries (
	index_name TEXT NOT NULL REFERENCES indices(name) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	level      INTEGER NOT NULL DEFAULT 0,
	parents    TEXT NOT NULL DEFAULT '[]',
	children   TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (index_name, name)
);

CREATE INDEX IF NOT EXISTS idx_entries_index ON entries(index_name);
`

// DB persists the global index in SQLite.
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database and applies the schema.
func OpenDB(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load reads every index and entry.
func (db *DB) Load(ctx context.Context) (models.GlobalIndex, error) {
	g := models.NewGlobalIndex()

	rows, err := db.conn.QueryContext(ctx, `SELECT name, nested, level, parents, children FROM indices`)
	if err != nil {
		return g, fmt.Errorf("index: query indices: %w", err)
	}
	for rows.Next() {
		var (
			name              string
			nested            bool
			level             int
			parents, children string
		)
		if err := rows.Scan(&name, &nested, &level, &parents, &children); err != nil {
			rows.Close()
			return g, fmt.Errorf("index: scan index: %w", err)
		}
		ix := &models.Index{Nested: nested, Level: level, Entries: map[string]models.IndexEntry{}}
		_ = json.Unmarshal([]byte(parents), &ix.Parents)
		_ = json.Unmarshal([]byte(children), &ix.Children)
		g.Indices[name] = ix
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return g, err
	}
	rows.Close()

	rows, err = db.conn.QueryContext(ctx, `SELECT index_name, name, level, parents, children FROM entries`)
	if err != nil {
		return g, fmt.Errorf("index: query entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			indexName, name   string
			level             int
			parents, children string
		)
		if err := rows.Scan(&indexName, &name, &level, &parents, &children); err != nil {
			return g, fmt.Errorf("index: scan entry: %w", err)
		}
		ix := g.Indices[indexName]
		if ix == nil {
			continue
		}
		e := models.IndexEntry{Metadata: models.EntryMetadata{Level: level}}
		_ = json.Unmarshal([]byte(parents), &e.Metadata.Parents)
		_ = json.Unmarshal([]byte(children), &e.Metadata.Children)
		if len(e.Metadata.Children) == 0 {
			e.Metadata.Children = nil
		}
		ix.Entries[name] = e
	}
	return g, rows.Err()
}

// Save replaces the stored index with g inside one transaction.
func (db *DB) Save(ctx context.Context, g models.GlobalIndex) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM indices`); err != nil {
		return fmt.Errorf("index: clear indices: %w", err)
	}

	insIndex, err := tx.PrepareContext(ctx, `INSERT INTO indices (name, nested, level, parents, children) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare index insert: %w", err)
	}
	defer insIndex.Close()
	insEntry, err := tx.PrepareContext(ctx, `INSERT INTO entries (index_name, name, level, parents, children) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare entry insert: %w", err)
	}
	defer insEntry.Close()

	names := make([]string, 0, len(g.Indices))
	for name := range g.Indices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ix := g.Indices[name]
		if ix == nil {
			continue
		}
		if _, err := insIndex.ExecContext(ctx, name, ix.Nested, ix.Level, jsonList(ix.Parents), jsonList(ix.Children)); err != nil {
			return fmt.Errorf("index: insert index %s: %w", name, err)
		}
		for entry, e := range ix.Entries {
			if _, err := insEntry.ExecContext(ctx, name, entry, e.Metadata.Level,
				jsonList(e.Metadata.Parents), jsonList(e.Metadata.Children)); err != nil {
				return fmt.Errorf("index: insert entry %s/%s: %w", name, entry, err)
			}
		}
	}
	return tx.Commit()
}

func jsonList(s []string) string {
	if s == nil {
		s = []string{}
	}
	b, _ := json.Marshal(s)
	return string(b)
}

var _ Persister = (*DB)(nil)
