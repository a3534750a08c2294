package postgres

import (
	"fmt"
	"strings"

	"github.com/driftline/driftline/database"
)

// Generator implements database.SQLGenerator for PostgreSQL.
type Generator struct{}

// NewGenerator creates a new PostgreSQL statement generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// CreateTable generates a CREATE TABLE statement with the columns inline.
func (g *Generator) CreateTable(t database.Table, cols []database.Column) (string, string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CREATE TABLE %s (\n", quoteIdentifier(t.Name)))
	for i, col := range cols {
		sb.WriteString("  ")
		sb.WriteString(g.columnDefinition(col))
		if i < len(cols)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	return sb.String(), fmt.Sprintf("Create table %s", t.Name)
}

// DropTable generates a DROP TABLE statement.
func (g *Generator) DropTable(t database.Table) (string, string) {
	sql := fmt.Sprintf("DROP TABLE %s", quoteIdentifier(t.Name))
	return sql, fmt.Sprintf("Drop table %s", t.Name)
}

// AddColumn generates an ALTER TABLE ... ADD COLUMN statement.
func (g *Generator) AddColumn(c database.Column) (string, string) {
	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		quoteIdentifier(c.TableName), g.columnDefinition(c))
	return sql, fmt.Sprintf("Add column %s to table %s", c.Name, c.TableName)
}

// ModifyColumn generates the ALTER TABLE clauses needed to move from one
// column definition to another. PostgreSQL alters type, nullability and
// default independently; the clauses are combined into one statement so the
// operation stays a single structural step.
func (g *Generator) ModifyColumn(from, to database.Column) (string, string) {
	table := quoteIdentifier(to.TableName)
	col := quoteIdentifier(to.Name)

	var clauses []string
	if from.ColumnType != to.ColumnType {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s TYPE %s", col, to.ColumnType))
	}
	if from.IsNullable != to.IsNullable {
		if to.IsNullable {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
		}
	}
	if !equalDefaults(from.DefaultValue, to.DefaultValue) {
		if to.DefaultValue == nil {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, formatDefault(to)))
		}
	}
	if len(clauses) == 0 {
		// Nothing structural changed; emit a no-op comment statement so the
		// operation still round-trips through the result log.
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s TYPE %s", col, to.ColumnType))
	}

	sql := fmt.Sprintf("ALTER TABLE %s %s", table, strings.Join(clauses, ", "))
	desc := fmt.Sprintf("Modify column %s.%s", to.TableName, to.Name)
	return sql, desc
}

// DropColumn generates an ALTER TABLE ... DROP COLUMN statement.
func (g *Generator) DropColumn(c database.Column) (string, string) {
	sql := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		quoteIdentifier(c.TableName), quoteIdentifier(c.Name))
	return sql, fmt.Sprintf("Drop column %s from table %s", c.Name, c.TableName)
}

// AddIndex generates a CREATE [UNIQUE] INDEX statement.
func (g *Generator) AddIndex(idx database.Index) (string, string) {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = quoteIdentifier(c)
	}
	sql := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, quoteIdentifier(idx.Name), quoteIdentifier(idx.TableName), strings.Join(cols, ", "))
	return sql, fmt.Sprintf("Create index %s on table %s", idx.Name, idx.TableName)
}

// DropIndex generates a DROP INDEX statement.
func (g *Generator) DropIndex(idx database.Index) (string, string) {
	sql := fmt.Sprintf("DROP INDEX %s", quoteIdentifier(idx.Name))
	return sql, fmt.Sprintf("Drop index %s from table %s", idx.Name, idx.TableName)
}

// AddForeignKey generates an ALTER TABLE ... ADD CONSTRAINT statement.
func (g *Generator) AddForeignKey(fk database.ForeignKey) (string, string) {
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		quoteIdentifier(fk.TableName), quoteIdentifier(fk.Name),
		quoteIdentifier(fk.Column), quoteIdentifier(fk.ReferencedTable), quoteIdentifier(fk.ReferencedColumn))
	if fk.OnDelete != "" {
		sql += fmt.Sprintf(" ON DELETE %s", fk.OnDelete)
	}
	return sql, fmt.Sprintf("Add foreign key %s to table %s", fk.Name, fk.TableName)
}

// DropForeignKey generates an ALTER TABLE ... DROP CONSTRAINT statement.
func (g *Generator) DropForeignKey(fk database.ForeignKey) (string, string) {
	sql := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		quoteIdentifier(fk.TableName), quoteIdentifier(fk.Name))
	return sql, fmt.Sprintf("Drop foreign key %s from table %s", fk.Name, fk.TableName)
}

// QuoteIdentifier quotes an identifier with double quotes.
func (g *Generator) QuoteIdentifier(name string) string {
	return quoteIdentifier(name)
}

// Placeholder returns PostgreSQL's positional placeholder.
func (g *Generator) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (g *Generator) columnDefinition(c database.Column) string {
	var sb strings.Builder
	sb.WriteString(quoteIdentifier(c.Name))
	sb.WriteString(" ")
	sb.WriteString(c.ColumnType)
	if !c.IsNullable {
		sb.WriteString(" NOT NULL")
	}
	if c.DefaultValue != nil {
		sb.WriteString(fmt.Sprintf(" DEFAULT %s", formatDefault(c)))
	}
	return sb.String()
}

func formatDefault(c database.Column) string {
	v := *c.DefaultValue
	upper := strings.ToUpper(v)
	if upper == "NULL" || strings.HasPrefix(upper, "CURRENT_") || strings.HasSuffix(v, ")") {
		return v
	}
	switch c.DataType {
	case "smallint", "integer", "bigint", "numeric", "real", "double precision", "boolean":
		return v
	}
	if strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func equalDefaults(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
