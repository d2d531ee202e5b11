// Package ledger records generation outcomes in a SQLite database.
//
// The ledger is observability only: work selection never consults it,
// and the pipeline treats ledger write failures as warnings. The only
// durable completion marker for a card is its output file.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - empty database (pre-schema)
// 1 - initial runs/attempts tables
const currentSchemaVersion = 1

// Outcome values recorded per attempt row.
const (
	OutcomeGenerated = "generated"
	OutcomeFailed    = "failed"
)

// Store provides durable storage for run outcomes.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db    *sql.DB
	runID string
}

// Open creates or opens the ledger database at path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent, safe to call on an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect ledger: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run row and scopes subsequent RecordAttempt calls
// to it.
func (s *Store) StartRun(ctx context.Context, backend string) error {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, backend) VALUES (?, ?)
	`, id, backend)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	s.runID = id
	return nil
}

// RunID returns the active run identifier, empty before StartRun.
func (s *Store) RunID() string { return s.runID }

// Attempt describes the outcome of one card's generation.
type Attempt struct {
	CardID     string
	Seed       uint32
	PromptHash string
	Attempts   int
	Outcome    string
	ErrorCode  string
	Duration   time.Duration
}

// RecordAttempt inserts one attempt row under the active run.
func (s *Store) RecordAttempt(ctx context.Context, a Attempt) error {
	if s.runID == "" {
		return fmt.Errorf("record attempt: no active run")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts
		(run_id, card_id, seed, prompt_hash, attempts, outcome, error_code, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.runID,
		a.CardID,
		int64(a.Seed),
		a.PromptHash,
		a.Attempts,
		a.Outcome,
		a.ErrorCode,
		a.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// AttemptRecord is one attempt row read back from the ledger.
type AttemptRecord struct {
	RunID      string
	CardID     string
	Seed       uint32
	PromptHash string
	Attempts   int
	Outcome    string
	ErrorCode  string
	Duration   time.Duration
	CreatedAt  string
}

// Attempts returns recorded attempts newest first, filtered to one card
// when cardID is non-empty.
func (s *Store) Attempts(ctx context.Context, cardID string) ([]AttemptRecord, error) {
	query := `
		SELECT run_id, card_id, seed, prompt_hash, attempts, outcome, error_code, duration_ms, created_at
		FROM attempts
	`
	var args []any
	if cardID != "" {
		query += ` WHERE card_id = ?`
		args = append(args, cardID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var (
			r          AttemptRecord
			seed       int64
			durationMS int64
		)
		if err := rows.Scan(&r.RunID, &r.CardID, &seed, &r.PromptHash, &r.Attempts, &r.Outcome, &r.ErrorCode, &durationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		r.Seed = uint32(seed)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	return out, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
