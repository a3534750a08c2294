package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/driftline/driftline/database"
)

// Introspector implements database.Introspector for PostgreSQL.
type Introspector struct{}

// NewIntrospector creates a new PostgreSQL introspector.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

// Snapshot reads the full schema of the current search-path schema. Tables
// whose metadata cannot be read are omitted with a warning.
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
		SELECT c.relname, COALESCE(c.reltuples::bigint, 0)
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relname = $1 AND n.nspname = current_schema() AND c.relkind = 'r'
	`, table)

	var t database.Table
	if err := row.Scan(&t.Name, &t.RowCountEstimate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	if t.RowCountEstimate < 0 {
		t.RowCountEstimate = 0
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
// schema.
func (i *Introspector) DatabaseSize(ctx context.Context, db *sql.DB) (*database.SizeInfo, error) {
	row := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(pg_total_relation_size(c.oid)), 0)
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema() AND c.relkind = 'r'
	`)

	var info database.SizeInfo
	if err := row.Scan(&info.TableCount, &info.TotalBytes); err != nil {
		return nil, fmt.Errorf("failed to query database size: %w", err)
	}
	return &info, nil
}

// TableRowCount returns an exact row count, or 0 with a logged warning.
func (i *Introspector) TableRowCount(ctx context.Context, db *sql.DB, table string) int64 {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		log.Printf("warning: row count for %s unavailable: %v", table, err)
		return 0
	}
	return count
}

// CreateTableStatement composes a declarative definition of a table from the
// introspected metadata. PostgreSQL has no SHOW CREATE TABLE equivalent, so
// the statement is rendered by the generator from the table detail.
func (i *Introspector) CreateTableStatement(ctx context.Context, db *sql.DB, table string) (string, error) {
	detail, err := i.TableDetail(ctx, db, table)
	if err != nil {
		return "", err
	}
	if detail == nil {
		return "", fmt.Errorf("table %s does not exist", table)
	}

	gen := NewGenerator()
	stmt, _ := gen.CreateTable(detail.Table, detail.Columns)
	return stmt, nil
}

func (i *Introspector) listTables(ctx context.Context, db *sql.DB) ([]database.Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.relname, COALESCE(c.reltuples::bigint, 0)
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema() AND c.relkind = 'r'
		ORDER BY c.relname
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []database.Table
	for rows.Next() {
		var t database.Table
		if err := rows.Scan(&t.Name, &t.RowCountEstimate); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		if t.RowCountEstimate < 0 {
			t.RowCountEstimate = 0
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (i *Introspector) tableColumns(ctx context.Context, db *sql.DB, table string) ([]database.Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, character_maximum_length,
		       is_nullable, column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
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
		if err := rows.Scan(&col.Name, &col.DataType, &maxLength, &nullable, &defaultVal, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}

		col.TableName = table
		col.IsNullable = nullable == "YES"
		if maxLength.Valid {
			v := maxLength.Int64
			col.MaxLength = &v
		}
		if defaultVal.Valid {
			v := normalizeDefault(defaultVal.String)
			col.DefaultValue = &v
		}
		col.ColumnType = composeColumnType(col.DataType, col.MaxLength)

		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (i *Introspector) tableIndexes(ctx context.Context, db *sql.DB, table string) ([]database.Index, error) {
	// Primary key and unique-constraint indexes are excluded; they belong to
	// the constraint, not to the index diff.
	rows, err := db.QueryContext(ctx, `
		SELECT i.indexname, i.indexdef, ix.indisunique
		FROM pg_indexes i
		JOIN pg_class c ON c.relname = i.indexname
		JOIN pg_index ix ON ix.indexrelid = c.oid
		WHERE i.schemaname = current_schema()
		  AND i.tablename = $1
		  AND ix.indisprimary = false
		  AND NOT EXISTS (
			SELECT 1 FROM pg_constraint con
			WHERE con.conindid = ix.indexrelid AND con.contype IN ('p', 'u')
		  )
		ORDER BY i.indexname
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var indexes []database.Index
	for rows.Next() {
		var idx database.Index
		var indexDef string
		if err := rows.Scan(&idx.Name, &indexDef, &idx.Unique); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		idx.TableName = table
		idx.Columns = parseIndexColumns(indexDef)
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (i *Introspector) tableForeignKeys(ctx context.Context, db *sql.DB, table string) ([]database.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tc.constraint_name, kcu.column_name,
		       ccu.table_name AS foreign_table_name,
		       ccu.column_name AS foreign_column_name,
		       rc.delete_rule
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints AS rc
		  ON rc.constraint_name = tc.constraint_name
		 AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = $1
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var foreignKeys []database.ForeignKey
	for rows.Next() {
		var fk database.ForeignKey
		var deleteRule string
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &deleteRule); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		fk.TableName = table
		if deleteRule != "NO ACTION" {
			fk.OnDelete = deleteRule
		}
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}

// composeColumnType renders the full type spelling including length, e.g.
// "character varying" with max length 50 becomes "character varying(50)".
func composeColumnType(dataType string, maxLength *int64) string {
	if maxLength != nil {
		return fmt.Sprintf("%s(%d)", dataType, *maxLength)
	}
	return dataType
}

// parseIndexColumns extracts the column list from an indexdef like
// "CREATE INDEX idx ON t USING btree (a, b)".
func parseIndexColumns(indexDef string) []string {
	open := strings.LastIndex(indexDef, "(")
	close := strings.LastIndex(indexDef, ")")
	if open < 0 || close <= open {
		return nil
	}
	parts := strings.Split(indexDef[open+1:close], ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		cols = append(cols, strings.TrimSpace(p))
	}
	return cols
}

// normalizeDefault strips redundant trailing type casts from PostgreSQL
// default expressions ('{}'::jsonb -> '{}') so defaults compare cleanly
// against hand-authored desired schemas.
func normalizeDefault(defaultVal string) string {
	if idx := strings.LastIndex(defaultVal, "::"); idx > 0 {
		beforeCast := defaultVal[:idx]
		if strings.Count(beforeCast, "'")%2 == 0 {
			return beforeCast
		}
	}
	return defaultVal
}
