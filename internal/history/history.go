// Package history keeps a SQLite log of consolidation runs and the matching
// statistics of every compared pair.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	input_dir     TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	revisions     INTEGER NOT NULL,
	output_pages  INTEGER NOT NULL,
	trackers      INTEGER NOT NULL,
	manifest      TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS pairs (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	pair        INTEGER NOT NULL,
	left_file   TEXT NOT NULL,
	right_file  TEXT NOT NULL,
	identical   INTEGER NOT NULL,
	modified    INTEGER NOT NULL,
	deleted     INTEGER NOT NULL,
	added       INTEGER NOT NULL,
	versions    INTEGER NOT NULL,
	new_sections INTEGER NOT NULL,
	duplicates  INTEGER NOT NULL,
	pages_added INTEGER NOT NULL,
	PRIMARY KEY (run_id, pair)
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one recorded consolidation run.
type Run struct {
	ID          string    `json:"id"`
	InputDir    string    `json:"input_dir"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Revisions   int       `json:"revisions"`
	OutputPages int       `json:"output_pages"`
	Trackers    int       `json:"trackers"`
	Manifest    string    `json:"manifest,omitempty"`
	Error       string    `json:"error,omitempty"`
	Pairs       []Pair    `json:"pairs,omitempty"`
}

// Pair holds the statistics of one comparison step.
type Pair struct {
	Index       int    `json:"pair"`
	Left        string `json:"left"`
	Right       string `json:"right"`
	Identical   int    `json:"identical"`
	Modified    int    `json:"modified"`
	Deleted     int    `json:"deleted"`
	Added       int    `json:"added"`
	Versions    int    `json:"versions"`
	NewSections int    `json:"new_sections"`
	Duplicates  int    `json:"duplicates"`
	PagesAdded  int    `json:"pages_added"`
}

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordRun stores a run and its pairs in one transaction.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, started_at, finished_at, revisions, output_pages, trackers, manifest, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.InputDir, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.Revisions, r.OutputPages, r.Trackers, r.Manifest, r.Error)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", r.ID, err)
	}
	for _, p := range r.Pairs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO pairs (run_id, pair, left_file, right_file, identical, modified, deleted, added, versions, new_sections, duplicates, pages_added)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, p.Index, p.Left, p.Right, p.Identical, p.Modified, p.Deleted, p.Added,
			p.Versions, p.NewSections, p.Duplicates, p.PagesAdded)
		if err != nil {
			return fmt.Errorf("history: insert pair %d of %s: %w", p.Index, r.ID, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first, with their pairs.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_dir, started_at, finished_at, revisions, output_pages, trackers, manifest, error
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.InputDir, &started, &finished, &r.Revisions, &r.OutputPages, &r.Trackers, &r.Manifest, &r.Error); err != nil {
			rows.Close()
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		pairs, err := s.pairs(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Pairs = pairs
	}
	return runs, nil
}

func (s *Store) pairs(ctx context.Context, runID string) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pair, left_file, right_file, identical, modified, deleted, added, versions, new_sections, duplicates, pages_added
		 FROM pairs WHERE run_id = ? ORDER BY pair`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: query pairs: %w", err)
	}
	defer rows.Close()
	var out []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.Index, &p.Left, &p.Right, &p.Identical, &p.Modified, &p.Deleted, &p.Added,
			&p.Versions, &p.NewSections, &p.Duplicates, &p.PagesAdded); err != nil {
			return nil, fmt.Errorf("history: scan pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
