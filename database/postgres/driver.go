package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftline/driftline/database"
)

// Driver implements database.Driver for PostgreSQL.
type Driver struct {
	*Introspector
	*Generator
}

// NewDriver creates a new PostgreSQL driver.
func NewDriver() *Driver {
	return &Driver{
		Introspector: NewIntrospector(),
		Generator:    NewGenerator(),
	}
}

// Name returns the dialect name.
func (d *Driver) Name() string { return "postgres" }

// OrphanedRowsExist checks whether the referencing column currently holds
// values with no matching row in the referenced table.
func (d *Driver) OrphanedRowsExist(ctx context.Context, db *sql.DB, fk database.ForeignKey) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(
		SELECT 1 FROM %s c
		LEFT JOIN %s p ON c.%s = p.%s
		WHERE c.%s IS NOT NULL AND p.%s IS NULL
	)`,
		quoteIdentifier(fk.TableName),
		quoteIdentifier(fk.ReferencedTable),
		quoteIdentifier(fk.Column), quoteIdentifier(fk.ReferencedColumn),
		quoteIdentifier(fk.Column), quoteIdentifier(fk.ReferencedColumn))

	var exists bool
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("orphaned row probe for %s failed: %w", fk.Name, err)
	}
	return exists, nil
}
