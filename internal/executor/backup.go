package executor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/driftline/driftline/database"
	"github.com/driftline/driftline/internal/planner"
)

// affectedTables lists every table a plan touches, sorted, excluding tables
// the plan itself creates (there is nothing to back up yet).
func affectedTables(plan *planner.Plan) []string {
	created := make(map[string]bool)
	seen := make(map[string]bool)
	for _, op := range plan.Migrations {
		if op.Type == planner.OpCreateTable {
			created[op.Table] = true
			continue
		}
		seen[op.Table] = true
		if fk := op.Details.ForeignKey; fk != nil && fk.ReferencedTable != "" {
			seen[fk.ReferencedTable] = true
		}
	}

	var tables []string
	for t := range seen {
		if !created[t] {
			tables = append(tables, t)
		}
	}
	sort.Strings(tables)
	return tables
}

// captureBackup writes the declarative definition of every affected table to
// a timestamped file under dir before any statement runs. The file is a
// structural backup only; data-level backups are the operator's call,
// flagged separately in the result.
func captureBackup(ctx context.Context, db *sql.DB, intro database.Introspector, plan *planner.Plan, dir, executionID string) (string, error) {
	tables := affectedTables(plan)
	if len(tables) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &BackupError{Cause: err}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- structural backup for execution %s\n", executionID)
	fmt.Fprintf(&b, "-- captured at %s\n\n", time.Now().UTC().Format(time.RFC3339))

	for _, table := range tables {
		stmt, err := intro.CreateTableStatement(ctx, db, table)
		if err != nil {
			return "", &BackupError{Table: table, Cause: err}
		}
		fmt.Fprintf(&b, "-- table: %s\n%s;\n\n", table, stmt)
	}

	path := filepath.Join(dir, fmt.Sprintf("backup_%s.sql", executionID))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", &BackupError{Cause: err}
	}
	return path, nil
}
