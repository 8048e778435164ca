// Package state persists per-book pipeline progress in SQLite so interrupted
// runs resume at the stage after the last completed one.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lucidpress/bindery/internal/models"
)

// Record is the persisted state of one book's pipeline.
type Record struct {
	BookID    string
	RunID     string
	Stage     models.Stage
	UpdatedAt time.Time
}

// Store persists pipeline state in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS book_runs (
		book_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stage_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		completed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_history_book ON stage_history(book_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the current state for a book. A book with no recorded state
// starts a fresh run at StagePending.
func (s *Store) Get(ctx context.Context, bookID string) (*Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT book_id, run_id, stage, updated_at FROM book_runs WHERE book_id = ?`,
		bookID,
	).Scan(&rec.BookID, &rec.RunID, &rec.Stage, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return &Record{
			BookID: bookID,
			RunID:  uuid.New().String(),
			Stage:  models.StagePending,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", bookID, err)
	}
	if !rec.Stage.Valid() {
		return nil, fmt.Errorf("corrupt state for %s: unknown stage %q", bookID, rec.Stage)
	}
	return &rec, nil
}

// Advance records completion of the next stage. The transition must be
// forward-only; skipping or repeating a stage is an error.
func (s *Store) Advance(ctx context.Context, rec *Record, next models.Stage) error {
	updated, err := rec.Stage.Advance(next)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO book_runs (book_id, run_id, stage, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(book_id) DO UPDATE SET run_id = excluded.run_id,
		 stage = excluded.stage, updated_at = excluded.updated_at`,
		rec.BookID, rec.RunID, string(updated), now,
	)
	if err != nil {
		return fmt.Errorf("save state for %s: %w", rec.BookID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stage_history (book_id, run_id, stage, completed_at) VALUES (?, ?, ?, ?)`,
		rec.BookID, rec.RunID, string(updated), now,
	)
	if err != nil {
		return fmt.Errorf("record history for %s: %w", rec.BookID, err)
	}
	rec.Stage = updated
	rec.UpdatedAt = now
	return nil
}

// Reset clears the recorded state for a book so the next run starts from
// scratch. Stage history is kept for auditing.
func (s *Store) Reset(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM book_runs WHERE book_id = ?`, bookID)
	if err != nil {
		return fmt.Errorf("reset state for %s: %w", bookID, err)
	}
	return nil
}

// History returns completed stages for a book, oldest first.
func (s *Store) History(ctx context.Context, bookID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT book_id, run_id, stage, completed_at FROM stage_history
		 WHERE book_id = ? ORDER BY id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", bookID, err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.BookID, &rec.RunID, &rec.Stage, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
