// Package patternstore keeps a library of repeated operator patterns seen
// across conversions in a SQLite database.
package patternstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/opconvert/internal/converter/pattern"
)

const schema = `
CREATE TABLE IF NOT EXISTS pattern_occurrences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	graph TEXT NOT NULL,
	pattern TEXT NOT NULL,
	length INTEGER NOT NULL,
	in_degree INTEGER NOT NULL,
	out_degree INTEGER NOT NULL,
	count INTEGER NOT NULL,
	module_name TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pattern_key ON pattern_occurrences (pattern, in_degree, out_degree);
`

const insertOccurrence = `INSERT INTO pattern_occurrences
	(session_id, graph, pattern, length, in_degree, out_degree, count, module_name, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectTop = `SELECT pattern, length, in_degree, out_degree, SUM(count), COUNT(DISTINCT graph)
	FROM pattern_occurrences
	GROUP BY pattern, length, in_degree, out_degree
	ORDER BY SUM(count) DESC, length DESC, pattern
	LIMIT ?`

// Entry is one pattern aggregated over every recorded conversion
type Entry struct {
	Key    pattern.Key
	Length int
	// Occurrences is the total occurrence count over all recorded graphs
	Occurrences int
	// Graphs is the number of distinct graphs the pattern was seen in
	Graphs int
}

// Store records patterns in a database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite library at path
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern store: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. The schema is not created.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create pattern store schema: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the named patterns of one conversion atomically
func (s *Store) Record(ctx context.Context, graphName, sessionID string, patterns []*pattern.Pattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	recordedAt := s.now().UTC()
	for _, p := range patterns {
		_, err := tx.ExecContext(ctx, insertOccurrence,
			sessionID, graphName, p.Pattern, p.Length, p.InDegree, p.OutDegree, p.Count, p.ModuleName, recordedAt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record pattern %s: %w", p.Pattern, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit patterns: %w", err)
	}
	return nil
}

// Top returns up to limit patterns ordered by total occurrences
func (s *Store) Top(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectTop, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key.Pattern, &e.Length, &e.Key.InDegree, &e.Key.OutDegree, &e.Occurrences, &e.Graphs); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
