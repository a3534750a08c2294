package planner

import (
	"github.com/driftline/driftline/database"
)

// diffSnapshots computes the raw, unordered operation set that transforms
// current into desired. Risk levels are assigned afterwards by classifyRisk
// and ordering by orderOperations.
func diffSnapshots(current, desired *database.Snapshot) []Operation {
	var ops []Operation

	currentTables := make(map[string]bool, len(current.Tables))
	for _, t := range current.Tables {
		currentTables[t.Name] = true
	}
	desiredTables := make(map[string]bool, len(desired.Tables))
	for _, t := range desired.Tables {
		desiredTables[t.Name] = true
	}

	// Table-level diff. Columns of new tables ride inline on create_table;
	// their indexes and foreign keys fall out of the entity diffs below.
	for _, name := range desired.TableNames() {
		if currentTables[name] {
			continue
		}
		t := *desired.Table(name)
		ops = append(ops, Operation{
			Type:  OpCreateTable,
			Table: name,
			Details: Details{
				TableDef: &t,
				Columns:  desired.TableColumns(name),
			},
		})
	}
	for _, name := range current.TableNames() {
		if desiredTables[name] {
			continue
		}
		t := *current.Table(name)
		ops = append(ops, Operation{
			Type:    OpDropTable,
			Table:   name,
			Details: Details{TableDef: &t},
		})
	}

	// Column-level diff, for tables present on both sides. Dropped tables
	// take their columns with them; created tables carry theirs inline.
	for _, name := range desired.TableNames() {
		if !currentTables[name] {
			continue
		}
		ops = append(ops, diffColumns(current, desired, name)...)
	}

	// Index-level diff for every desired table (covers new tables too).
	for _, name := range desired.TableNames() {
		for _, idx := range desired.TableIndexes(name) {
			cur := current.Index(name, idx.Name)
			switch {
			case cur == nil:
				i := idx
				ops = append(ops, Operation{Type: OpAddIndex, Table: name, Details: Details{Index: &i}})
			case !sameIndex(*cur, idx):
				// Redefined index: replace it.
				old, next := *cur, idx
				ops = append(ops,
					Operation{Type: OpDropIndex, Table: name, Details: Details{Index: &old}},
					Operation{Type: OpAddIndex, Table: name, Details: Details{Index: &next}},
				)
			}
		}
		if !currentTables[name] {
			continue
		}
		for _, idx := range current.TableIndexes(name) {
			if desired.Index(name, idx.Name) == nil {
				i := idx
				ops = append(ops, Operation{Type: OpDropIndex, Table: name, Details: Details{Index: &i}})
			}
		}
	}

	// Foreign-key diff. Drops are emitted for every key that disappears,
	// including keys owned by dropped tables, so constraint removal always
	// precedes table removal regardless of dependency cycles.
	for i := range desired.ForeignKeys {
		fk := desired.ForeignKeys[i]
		cur := current.ForeignKey(fk.TableName, fk.Name)
		switch {
		case cur == nil:
			f := fk
			ops = append(ops, Operation{Type: OpAddForeignKey, Table: fk.TableName, Details: Details{ForeignKey: &f}})
		case !sameForeignKey(*cur, fk):
			old, next := *cur, fk
			ops = append(ops,
				Operation{Type: OpDropForeignKey, Table: fk.TableName, Details: Details{ForeignKey: &old}},
				Operation{Type: OpAddForeignKey, Table: fk.TableName, Details: Details{ForeignKey: &next}},
			)
		}
	}
	for i := range current.ForeignKeys {
		fk := current.ForeignKeys[i]
		if desired.ForeignKey(fk.TableName, fk.Name) == nil {
			f := fk
			ops = append(ops, Operation{Type: OpDropForeignKey, Table: fk.TableName, Details: Details{ForeignKey: &f}})
		}
	}

	return ops
}

func diffColumns(current, desired *database.Snapshot, table string) []Operation {
	var ops []Operation

	for _, col := range desired.TableColumns(table) {
		cur := current.Column(table, col.Name)
		if cur == nil {
			c := col
			ops = append(ops, Operation{Type: OpAddColumn, Table: table, Details: Details{Column: &c}})
			continue
		}
		if changes := columnChanges(*cur, col); len(changes) > 0 {
			from, to := *cur, col
			ops = append(ops, Operation{
				Type:  OpModifyColumn,
				Table: table,
				Details: Details{
					Column:     &to,
					FromColumn: &from,
					Changes:    changes,
				},
			})
		}
	}

	for _, col := range current.TableColumns(table) {
		if desired.Column(table, col.Name) == nil {
			c := col
			ops = append(ops, Operation{Type: OpDropColumn, Table: table, Details: Details{Column: &c}})
		}
	}

	return ops
}

// columnChanges lists which of the identity-relevant attributes differ
// between two definitions of the same column.
func columnChanges(from, to database.Column) []string {
	var changes []string
	if from.ColumnType != to.ColumnType {
		changes = append(changes, "type")
	}
	if from.IsNullable != to.IsNullable {
		changes = append(changes, "nullable")
	}
	if !equalDefaults(from.DefaultValue, to.DefaultValue) {
		changes = append(changes, "default")
	}
	return changes
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

func sameIndex(a, b database.Index) bool {
	if a.Unique != b.Unique || len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

func sameForeignKey(a, b database.ForeignKey) bool {
	return a.Column == b.Column &&
		a.ReferencedTable == b.ReferencedTable &&
		a.ReferencedColumn == b.ReferencedColumn &&
		a.OnDelete == b.OnDelete
}
