package mysql

import (
	"fmt"
	"strings"

	"github.com/driftline/driftline/database"
)

// Generator implements database.SQLGenerator for MySQL-compatible engines.
type Generator struct{}

// NewGenerator creates a new MySQL statement generator.
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
	engine := t.Engine
	if engine == "" {
		engine = "InnoDB"
	}
	sb.WriteString(fmt.Sprintf(") ENGINE=%s DEFAULT CHARSET=utf8mb4", engine))

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

// ModifyColumn generates an ALTER TABLE ... MODIFY COLUMN statement carrying
// the full desired definition; MySQL replaces the column definition wholesale.
func (g *Generator) ModifyColumn(from, to database.Column) (string, string) {
	sql := fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s",
		quoteIdentifier(to.TableName), g.columnDefinition(to))
	desc := fmt.Sprintf("Modify column %s.%s (%s -> %s)",
		to.TableName, to.Name, describeColumn(from), describeColumn(to))
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
	sql := fmt.Sprintf("DROP INDEX %s ON %s",
		quoteIdentifier(idx.Name), quoteIdentifier(idx.TableName))
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

// DropForeignKey generates an ALTER TABLE ... DROP FOREIGN KEY statement.
func (g *Generator) DropForeignKey(fk database.ForeignKey) (string, string) {
	sql := fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s",
		quoteIdentifier(fk.TableName), quoteIdentifier(fk.Name))
	return sql, fmt.Sprintf("Drop foreign key %s from table %s", fk.Name, fk.TableName)
}

// QuoteIdentifier quotes an identifier with backticks.
func (g *Generator) QuoteIdentifier(name string) string {
	return quoteIdentifier(name)
}

// Placeholder returns MySQL's positional placeholder.
func (g *Generator) Placeholder(_ int) string { return "?" }

// columnDefinition renders a full column definition for CREATE and ALTER
// statements.
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

func describeColumn(c database.Column) string {
	nullability := "NULL"
	if !c.IsNullable {
		nullability = "NOT NULL"
	}
	return fmt.Sprintf("%s %s", c.ColumnType, nullability)
}

// formatDefault quotes textual defaults and leaves numeric and keyword
// defaults (CURRENT_TIMESTAMP, NULL) bare.
func formatDefault(c database.Column) string {
	v := *c.DefaultValue
	upper := strings.ToUpper(v)
	if upper == "NULL" || strings.HasPrefix(upper, "CURRENT_TIMESTAMP") {
		return v
	}
	switch c.DataType {
	case "tinyint", "smallint", "mediumint", "int", "bigint",
		"decimal", "float", "double", "bit", "year":
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
