package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/driftline/driftline/database"
)

// Introspector implements database.Introspector for MySQL-compatible engines
// using information_schema.
type Introspector struct{}

// NewIntrospector creates a new MySQL introspector.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

// Snapshot reads the full schema of the current database. Tables whose
// column, index or foreign key metadata cannot be read are omitted from the
// result with a warning so a transient per-table failure never poisons the
// whole capture.
func (i *Introspector) Snapshot(ctx context.Context, db *sql.DB) (*database.Snapshot, error) {
	tables, err := i.listTables(ctx, db)
	if err != nil {
		return nil, &database.SchemaUnavailableError{Cause: err}
	}

	snap := &database.Snapshot{
		Tables:      make([]database.Table, 0, len(tables)),
		Columns:     []database.Column{},
		Indexes:     []database.Index{},
		ForeignKeys: []database.ForeignKey{},
	}

	for _, t := range tables {
		columns, err := i.tableColumns(ctx, db, t.Name)
		if err != nil {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("table %s omitted: %v", t.Name, err))
			continue
		}

		indexes, err := i.tableIndexes(ctx, db, t.Name)
		if err != nil {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("table %s omitted: %v", t.Name, err))
			continue
		}

		foreignKeys, err := i.tableForeignKeys(ctx, db, t.Name)
		if err != nil {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("table %s omitted: %v", t.Name, err))
			continue
		}

		snap.Tables = append(snap.Tables, t)
		snap.Columns = append(snap.Columns, columns...)
		snap.Indexes = append(snap.Indexes, indexes...)
		snap.ForeignKeys = append(snap.ForeignKeys, foreignKeys...)
	}

	return snap, nil
}

// TableDetail returns structural detail for one table, or (nil, nil) if the
// table does not exist.
func (i *Introspector) TableDetail(ctx context.Context, db *sql.DB, table string) (*database.TableDetail, error) {
	row := db.QueryRowContext(ctx, `
		SELECT TABLE_NAME, COALESCE(ENGINE, ''), COALESCE(TABLE_ROWS, 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND TABLE_TYPE = 'BASE TABLE'
	`, table)

	var t database.Table
	if err := row.Scan(&t.Name, &t.Engine, &t.RowCountEstimate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}

	columns, err := i.tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	indexes, err := i.tableIndexes(ctx, db, table)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := i.tableForeignKeys(ctx, db, table)
	if err != nil {
		return nil, err
	}

	return &database.TableDetail{
		Table:       t,
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: foreignKeys,
	}, nil
}

// DatabaseSize returns total storage bytes and table count for the current
// database.
func (i *Introspector) DatabaseSize(ctx context.Context, db *sql.DB) (*database.SizeInfo, error) {
	row := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(DATA_LENGTH + INDEX_LENGTH), 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
	`)

	var info database.SizeInfo
	if err := row.Scan(&info.TableCount, &info.TotalBytes); err != nil {
		return nil, fmt.Errorf("failed to query database size: %w", err)
	}
	return &info, nil
}

// TableRowCount returns an exact row count, or 0 with a logged warning when
// the count query fails. The count only feeds risk and time estimation.
func (i *Introspector) TableRowCount(ctx context.Context, db *sql.DB, table string) int64 {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		log.Printf("warning: row count for %s unavailable: %v", table, err)
		return 0
	}
	return count
}

// CreateTableStatement returns the declarative definition of a table as
// reported by SHOW CREATE TABLE.
func (i *Introspector) CreateTableStatement(ctx context.Context, db *sql.DB, table string) (string, error) {
	var name, stmt string
	query := fmt.Sprintf("SHOW CREATE TABLE %s", quoteIdentifier(table))
	if err := db.QueryRowContext(ctx, query).Scan(&name, &stmt); err != nil {
		return "", fmt.Errorf("failed to read definition of %s: %w", table, err)
	}
	return stmt, nil
}

func (i *Introspector) listTables(ctx context.Context, db *sql.DB) ([]database.Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT TABLE_NAME, COALESCE(ENGINE, ''), COALESCE(TABLE_ROWS, 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []database.Table
	for rows.Next() {
		var t database.Table
		if err := rows.Scan(&t.Name, &t.Engine, &t.RowCountEstimate); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (i *Introspector) tableColumns(ctx context.Context, db *sql.DB, table string) ([]database.Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH,
		       IS_NULLABLE, COLUMN_DEFAULT, ORDINAL_POSITION
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []database.Column
	for rows.Next() {
		var (
			col        database.Column
			maxLength  sql.NullInt64
			nullable   string
			defaultVal sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DataType, &col.ColumnType, &maxLength, &nullable, &defaultVal, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}

		col.TableName = table
		col.IsNullable = nullable == "YES"
		if maxLength.Valid {
			v := maxLength.Int64
			col.MaxLength = &v
		}
		if defaultVal.Valid {
			v := defaultVal.String
			col.DefaultValue = &v
		}

		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (i *Introspector) tableIndexes(ctx context.Context, db *sql.DB, table string) ([]database.Index, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT INDEX_NAME, COLUMN_NAME, NON_UNIQUE
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME <> 'PRIMARY'
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// Rows arrive one per (index, column); group multi-column indexes while
	// preserving column order within each index.
	idxMap := make(map[string]*database.Index)
	var order []string

	for rows.Next() {
		var name, column string
		var nonUnique int
		if err := rows.Scan(&name, &column, &nonUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}

		idx, exists := idxMap[name]
		if !exists {
			idx = &database.Index{
				TableName: table,
				Name:      name,
				Unique:    nonUnique == 0,
			}
			idxMap[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]database.Index, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *idxMap[name])
	}
	return indexes, nil
}

func (i *Introspector) tableForeignKeys(ctx context.Context, db *sql.DB, table string) ([]database.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME,
		       kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		       rc.DELETE_RULE
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		  ON rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		 AND rc.CONSTRAINT_SCHEMA = kcu.TABLE_SCHEMA
		WHERE kcu.TABLE_SCHEMA = DATABASE()
		  AND kcu.TABLE_NAME = ?
		  AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var foreignKeys []database.ForeignKey
	for rows.Next() {
		var fk database.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.OnDelete); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		fk.TableName = table
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}
