package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftline/driftline/database"
)

const lockTableName = "driftline_lock"

// advisoryLock serializes executions against one target database with a
// single-row marker table. The row carries a fenced token so a holder only
// ever releases its own acquisition, never a successor's.
type advisoryLock struct {
	db  *sql.DB
	gen database.SQLGenerator
}

func (l *advisoryLock) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id INT PRIMARY KEY,
  token VARCHAR(64) NOT NULL,
  acquired_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, l.gen.QuoteIdentifier(lockTableName))

	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating lock table: %w", err)
	}
	return nil
}

// acquire inserts the marker row. A duplicate-key failure means another
// execution holds the lock; that is surfaced as ConcurrencyError without
// waiting.
func (l *advisoryLock) acquire(ctx context.Context, token string) error {
	if err := l.ensureTable(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (id, token) VALUES (1, %s)",
		l.gen.QuoteIdentifier(lockTableName), l.gen.Placeholder(1))
	if _, err := l.db.ExecContext(ctx, query, token); err != nil {
		holder := l.currentHolder(ctx)
		return &ConcurrencyError{HolderToken: holder}
	}
	return nil
}

// release deletes the marker row, but only if it still carries our token.
// Called unconditionally on completion or failure.
func (l *advisoryLock) release(ctx context.Context, token string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = 1 AND token = %s",
		l.gen.QuoteIdentifier(lockTableName), l.gen.Placeholder(1))
	if _, err := l.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}
	return nil
}

func (l *advisoryLock) currentHolder(ctx context.Context) string {
	query := fmt.Sprintf("SELECT token FROM %s WHERE id = 1", l.gen.QuoteIdentifier(lockTableName))
	var token string
	if err := l.db.QueryRowContext(ctx, query).Scan(&token); err != nil {
		return ""
	}
	return token
}
