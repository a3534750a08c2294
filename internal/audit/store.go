// Package audit persists one durable record per execution attempt. Records
// are append-only: a row is inserted when a run starts and finalized exactly
// once when it completes, then never touched again.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/driftline/driftline/database"
)

const tableName = "driftline_executions"

// Record is one row of the audit table. PlanSummary and Results hold the
// structured documents as JSON text so the table stays portable across
// dialects.
type Record struct {
	ExecutionID  string
	PlanSummary  string
	Results      string
	DurationMs   int64
	BackupPath   *string
	DryRun       bool
	ErrorMessage *string
	CreatedAt    time.Time
}

// Store reads and writes audit records through a live connection.
type Store struct {
	DB  *sql.DB
	Gen database.SQLGenerator
}

func NewStore(db *sql.DB, gen database.SQLGenerator) *Store {
	return &Store{DB: db, Gen: gen}
}

// EnsureSchema creates the audit table if it does not exist. The column
// types are chosen to be valid in both supported dialects.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  execution_id VARCHAR(64) PRIMARY KEY,
  plan_summary TEXT NOT NULL,
  results TEXT NOT NULL,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  backup_path VARCHAR(512),
  dry_run BOOLEAN NOT NULL DEFAULT FALSE,
  error_message TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, s.Gen.QuoteIdentifier(tableName))

	if _, err := s.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating audit table: %w", err)
	}
	return nil
}

// Begin inserts the initial record for an execution attempt. Results and
// duration are filled in by Finalize.
func (s *Store) Begin(ctx context.Context, executionID, planSummary string, dryRun bool) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (execution_id, plan_summary, results, dry_run) VALUES (%s, %s, '[]', %s)",
		s.Gen.QuoteIdentifier(tableName),
		s.Gen.Placeholder(1), s.Gen.Placeholder(2), s.Gen.Placeholder(3),
	)
	if _, err := s.DB.ExecContext(ctx, query, executionID, planSummary, dryRun); err != nil {
		return fmt.Errorf("recording execution start %s: %w", executionID, err)
	}
	return nil
}

// Finalize completes the record for one execution attempt. It must be
// called exactly once per Begin. No affected-row check: the MySQL driver
// reports rows changed rather than rows matched, so an update that writes
// values identical to the initial row would look like a miss.
func (s *Store) Finalize(ctx context.Context, executionID, results string, durationMs int64, backupPath, errorMessage *string) error {
	query := fmt.Sprintf(
		"UPDATE %s SET results = %s, duration_ms = %s, backup_path = %s, error_message = %s WHERE execution_id = %s",
		s.Gen.QuoteIdentifier(tableName),
		s.Gen.Placeholder(1), s.Gen.Placeholder(2), s.Gen.Placeholder(3),
		s.Gen.Placeholder(4), s.Gen.Placeholder(5),
	)
	if _, err := s.DB.ExecContext(ctx, query, results, durationMs, backupPath, errorMessage, executionID); err != nil {
		return fmt.Errorf("finalizing execution record %s: %w", executionID, err)
	}
	return nil
}

// History returns the most recent records, newest first. Read-only.
func (s *Store) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(
		"SELECT execution_id, plan_summary, results, duration_ms, backup_path, dry_run, error_message, created_at FROM %s ORDER BY created_at DESC, execution_id DESC LIMIT %d",
		s.Gen.QuoteIdentifier(tableName), limit,
	)

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading execution history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec          Record
			backupPath   sql.NullString
			errorMessage sql.NullString
		)
		if err := rows.Scan(&rec.ExecutionID, &rec.PlanSummary, &rec.Results, &rec.DurationMs,
			&backupPath, &rec.DryRun, &errorMessage, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning execution record: %w", err)
		}
		if backupPath.Valid {
			rec.BackupPath = &backupPath.String
		}
		if errorMessage.Valid {
			rec.ErrorMessage = &errorMessage.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading execution history: %w", err)
	}
	return records, nil
}

// Format renders one record as a short multi-line block for CLI output.
func (r Record) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s", r.CreatedAt.Format(time.RFC3339), r.ExecutionID)
	if r.DryRun {
		b.WriteString("  (dry run)")
	}
	fmt.Fprintf(&b, "\n  duration: %dms", r.DurationMs)
	if r.BackupPath != nil {
		fmt.Fprintf(&b, "\n  backup: %s", *r.BackupPath)
	}
	if r.ErrorMessage != nil {
		fmt.Fprintf(&b, "\n  error: %s", *r.ErrorMessage)
	}
	return b.String()
}
