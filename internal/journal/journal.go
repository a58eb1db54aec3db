// Package journal keeps an SQLite record of evaluated attempts.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TutorChat/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultLimit is the number of attempts Recent returns for a non-positive limit
const DefaultLimit = 20

// Store is an append-only attempt journal
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the journal database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	createAttemptsTable := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		task TEXT NOT NULL,
		translation TEXT NOT NULL,
		evaluation TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at);`

	if _, err := db.Exec(createAttemptsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create attempts table: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends an attempt
func (s *Store) Record(ctx context.Context, a session.Attempt) error {
	if a.ID == "" {
		return fmt.Errorf("attempt has no id")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	evaluation := string(a.Evaluation)
	if evaluation == "" {
		evaluation = "null"
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO attempts (id, session_id, task, translation, evaluation, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.SessionID, a.Task, a.Translation, evaluation, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]session.Attempt, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, task, translation, evaluation, created_at FROM attempts ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}
	defer rows.Close()

	attempts := []session.Attempt{}
	for rows.Next() {
		var a session.Attempt
		var evaluation string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Task, &a.Translation, &evaluation, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Evaluation = json.RawMessage(evaluation)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}
	return attempts, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
