// Package storage persists tournament runs and leaderboard rows to a
// local SQLite database. It sits outside the scored core but is
// implemented for real rather than stubbed out.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	seed INTEGER NOT NULL,
	n_steps INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	author TEXT NOT NULL,
	strategy_name TEXT,
	status TEXT NOT NULL,
	errors TEXT
);

CREATE TABLE IF NOT EXISTS leaderboard_entries (
	submission_id TEXT NOT NULL REFERENCES submissions(id),
	run_id TEXT NOT NULL REFERENCES runs(id),
	realized_pnl TEXT NOT NULL,
	accumulated_fees_x TEXT NOT NULL,
	accumulated_fees_y TEXT NOT NULL,
	sharpe TEXT NOT NULL DEFAULT '0',
	max_drawdown TEXT NOT NULL DEFAULT '0',
	rank INTEGER NOT NULL,
	PRIMARY KEY (submission_id, run_id)
);
`

// Store wraps a SQLite connection with the tournament schema applied.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema. path may be ":memory:" for an ephemeral store, in
// which case shared-cache mode is used so the one connection pool sees a
// single database.
func Open(path string) (*Store, error) {
	if path == ":memory:" {
		path = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is a single tournament run's bookkeeping row.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Seed       int64
	NSteps     int
}

// CreateRun inserts a new run row.
func (s *Store) CreateRun(run Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, seed, n_steps) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Seed, run.NSteps,
	)
	if err != nil {
		return fmt.Errorf("storage: create run: %w", err)
	}
	return nil
}

// FinishRun stamps a run's completion time.
func (s *Store) FinishRun(runID string, finishedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("storage: finish run: %w", err)
	}
	return nil
}

// SubmissionRecord is one competitor's persisted status for a run.
type SubmissionRecord struct {
	ID           string
	RunID        string
	Author       string
	StrategyName string
	Status       string
	Errors       string
}

// SaveSubmission upserts a submission's current status and diagnostics.
func (s *Store) SaveSubmission(rec SubmissionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO submissions (id, run_id, author, strategy_name, status, errors)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, errors = excluded.errors,
			strategy_name = excluded.strategy_name`,
		rec.ID, rec.RunID, rec.Author, rec.StrategyName, rec.Status, rec.Errors,
	)
	if err != nil {
		return fmt.Errorf("storage: save submission: %w", err)
	}
	return nil
}

// LeaderboardEntry is one scored competitor's row, ready for display.
type LeaderboardEntry struct {
	SubmissionID     string
	RunID            string
	RealizedPnL      string
	AccumulatedFeesX string
	AccumulatedFeesY string
	Sharpe           string
	MaxDrawdown      string
	Rank             int
}

// SaveLeaderboard replaces the leaderboard rows for runID with entries,
// in a single transaction.
func (s *Store) SaveLeaderboard(runID string, entries []LeaderboardEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin leaderboard tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM leaderboard_entries WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("storage: clear leaderboard: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(`
			INSERT INTO leaderboard_entries
				(submission_id, run_id, realized_pnl, accumulated_fees_x, accumulated_fees_y, sharpe, max_drawdown, rank)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.SubmissionID, e.RunID, e.RealizedPnL, e.AccumulatedFeesX, e.AccumulatedFeesY, e.Sharpe, e.MaxDrawdown, e.Rank,
		); err != nil {
			return fmt.Errorf("storage: insert leaderboard entry: %w", err)
		}
	}
	return tx.Commit()
}

// Leaderboard returns runID's entries ordered by rank.
func (s *Store) Leaderboard(runID string) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT submission_id, run_id, realized_pnl, accumulated_fees_x, accumulated_fees_y, sharpe, max_drawdown, rank
		FROM leaderboard_entries WHERE run_id = ? ORDER BY rank ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage: query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.SubmissionID, &e.RunID, &e.RealizedPnL, &e.AccumulatedFeesX, &e.AccumulatedFeesY, &e.Sharpe, &e.MaxDrawdown, &e.Rank); err != nil {
			return nil, fmt.Errorf("storage: scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
