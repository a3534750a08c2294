package schema

import (
	"fmt"

	"github.com/driftline/driftline/database"
)

// CheckIntegrity verifies that a desired snapshot is internally consistent:
// no duplicate identifying keys, and every column, index and foreign key
// refers only to entities present in the same snapshot. It returns one issue
// string per violation; an empty slice means the snapshot is well-formed.
func CheckIntegrity(snap *database.Snapshot) []string {
	var issues []string

	tables := make(map[string]bool, len(snap.Tables))
	for _, t := range snap.Tables {
		if t.Name == "" {
			issues = append(issues, "table with empty name")
			continue
		}
		if tables[t.Name] {
			issues = append(issues, fmt.Sprintf("duplicate table %s", t.Name))
		}
		tables[t.Name] = true
	}

	columns := make(map[string]bool, len(snap.Columns))
	for _, c := range snap.Columns {
		key := c.TableName + "." + c.Name
		if columns[key] {
			issues = append(issues, fmt.Sprintf("duplicate column %s", key))
		}
		columns[key] = true
		if !tables[c.TableName] {
			issues = append(issues, fmt.Sprintf("column %s belongs to unknown table %s", key, c.TableName))
		}
	}

	indexes := make(map[string]bool, len(snap.Indexes))
	for _, idx := range snap.Indexes {
		key := idx.TableName + "." + idx.Name
		if indexes[key] {
			issues = append(issues, fmt.Sprintf("duplicate index %s", key))
		}
		indexes[key] = true
		if !tables[idx.TableName] {
			issues = append(issues, fmt.Sprintf("index %s belongs to unknown table %s", key, idx.TableName))
			continue
		}
		for _, col := range idx.Columns {
			if !columns[idx.TableName+"."+col] {
				issues = append(issues, fmt.Sprintf("index %s covers unknown column %s.%s", key, idx.TableName, col))
			}
		}
	}

	fks := make(map[string]bool, len(snap.ForeignKeys))
	for _, fk := range snap.ForeignKeys {
		key := fk.TableName + "." + fk.Name
		if fks[key] {
			issues = append(issues, fmt.Sprintf("duplicate foreign key %s", key))
		}
		fks[key] = true
		if !tables[fk.TableName] {
			issues = append(issues, fmt.Sprintf("foreign key %s belongs to unknown table %s", key, fk.TableName))
			continue
		}
		if !columns[fk.TableName+"."+fk.Column] {
			issues = append(issues, fmt.Sprintf("foreign key %s references unknown column %s.%s", key, fk.TableName, fk.Column))
		}
		if !tables[fk.ReferencedTable] {
			issues = append(issues, fmt.Sprintf("foreign key %s points at unknown table %s", key, fk.ReferencedTable))
		} else if !columns[fk.ReferencedTable+"."+fk.ReferencedColumn] {
			issues = append(issues, fmt.Sprintf("foreign key %s points at unknown column %s.%s", key, fk.ReferencedTable, fk.ReferencedColumn))
		}
	}

	return issues
}
