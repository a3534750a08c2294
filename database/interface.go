package database

import (
	"context"
	"database/sql"
)

// Introspector reads structural metadata from a live database. Implementations
// are side-effect-free and safe for concurrent use.
type Introspector interface {
	// Snapshot reads the full schema in one logical pass. Tables whose
	// metadata cannot be read are omitted and noted in Snapshot.Warnings;
	// the call fails only when the catalog itself is unreachable, in which
	// case the error is a *SchemaUnavailableError.
	Snapshot(ctx context.Context, db *sql.DB) (*Snapshot, error)

	// TableDetail returns structural detail for one table, or (nil, nil) if
	// the table does not exist.
	TableDetail(ctx context.Context, db *sql.DB, table string) (*TableDetail, error)

	// DatabaseSize returns aggregate storage statistics. Estimation input
	// only, never structural correctness.
	DatabaseSize(ctx context.Context, db *sql.DB) (*SizeInfo, error)

	// TableRowCount returns a best-effort row count. On failure it logs a
	// warning and returns 0 rather than failing, since the count is only
	// an estimation input.
	TableRowCount(ctx context.Context, db *sql.DB, table string) int64

	// CreateTableStatement reconstructs a declarative definition of a table
	// for documentation and backup purposes.
	CreateTableStatement(ctx context.Context, db *sql.DB, table string) (string, error)
}

// SQLGenerator composes dialect-specific structural statements. Every method
// is a pure function of its inputs; the exact same statement text is used for
// dry-run simulation and for execution.
type SQLGenerator interface {
	CreateTable(t Table, cols []Column) (sql string, description string)
	DropTable(t Table) (sql string, description string)
	AddColumn(c Column) (sql string, description string)
	ModifyColumn(from, to Column) (sql string, description string)
	DropColumn(c Column) (sql string, description string)
	AddIndex(idx Index) (sql string, description string)
	DropIndex(idx Index) (sql string, description string)
	AddForeignKey(fk ForeignKey) (sql string, description string)
	DropForeignKey(fk ForeignKey) (sql string, description string)

	// QuoteIdentifier quotes a table or column name for this dialect.
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for this dialect.
	// PostgreSQL: $1, $2, ... MySQL: ?.
	Placeholder(position int) string
}

// Prober runs the lightweight data-existence queries the planner uses for
// risk classification.
type Prober interface {
	// OrphanedRowsExist reports whether the referencing column currently
	// holds values with no matching row in the referenced table.
	OrphanedRowsExist(ctx context.Context, db *sql.DB, fk ForeignKey) (bool, error)
}

// Driver bundles introspection, statement generation and probing for one
// database dialect.
type Driver interface {
	Introspector
	SQLGenerator
	Prober

	// Name returns the dialect name ("mysql", "postgres").
	Name() string
}
