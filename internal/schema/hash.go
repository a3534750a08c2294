package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/driftline/driftline/database"
)

// ComputeSnapshotHash generates a deterministic hash of a snapshot. The hash
// covers every table, column, index and foreign key; any structural change
// produces a different hash. Row count estimates and warnings are excluded
// because they are not structural.
func ComputeSnapshotHash(snap *database.Snapshot) (string, error) {
	if snap == nil {
		return computeHash(map[string]interface{}{"tables": []interface{}{}}), nil
	}

	jsonBytes, err := json.Marshal(canonicalizeSnapshot(snap))
	if err != nil {
		return "", err
	}
	return computeHash(jsonBytes), nil
}

// canonicalizeSnapshot creates a sorted, deterministic representation of a
// snapshot.
func canonicalizeSnapshot(snap *database.Snapshot) map[string]interface{} {
	tables := make([]interface{}, 0, len(snap.Tables))
	for _, name := range snap.TableNames() {
		t := snap.Table(name)
		tableMap := map[string]interface{}{
			"name":    t.Name,
			"columns": canonicalizeColumns(snap.TableColumns(name)),
		}
		if t.Engine != "" {
			tableMap["engine"] = t.Engine
		}
		if idxs := snap.TableIndexes(name); len(idxs) > 0 {
			tableMap["indexes"] = canonicalizeIndexes(idxs)
		}
		if fks := snap.TableForeignKeys(name); len(fks) > 0 {
			tableMap["foreign_keys"] = canonicalizeForeignKeys(fks)
		}
		tables = append(tables, tableMap)
	}

	return map[string]interface{}{"tables": tables}
}

func canonicalizeColumns(columns []database.Column) []interface{} {
	sorted := make([]database.Column, len(columns))
	copy(sorted, columns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	result := make([]interface{}, 0, len(sorted))
	for _, col := range sorted {
		colMap := map[string]interface{}{
			"name":     col.Name,
			"type":     col.ColumnType,
			"nullable": col.IsNullable,
		}
		if col.DefaultValue != nil {
			colMap["default"] = *col.DefaultValue
		}
		result = append(result, colMap)
	}
	return result
}

func canonicalizeIndexes(indexes []database.Index) []interface{} {
	sorted := make([]database.Index, len(indexes))
	copy(sorted, indexes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	result := make([]interface{}, 0, len(sorted))
	for _, idx := range sorted {
		result = append(result, map[string]interface{}{
			"name":    idx.Name,
			"columns": idx.Columns,
			"unique":  idx.Unique,
		})
	}
	return result
}

func canonicalizeForeignKeys(fks []database.ForeignKey) []interface{} {
	sorted := make([]database.ForeignKey, len(fks))
	copy(sorted, fks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	result := make([]interface{}, 0, len(sorted))
	for _, fk := range sorted {
		fkMap := map[string]interface{}{
			"name":              fk.Name,
			"column":            fk.Column,
			"referenced_table":  fk.ReferencedTable,
			"referenced_column": fk.ReferencedColumn,
		}
		if fk.OnDelete != "" {
			fkMap["on_delete"] = fk.OnDelete
		}
		result = append(result, fkMap)
	}
	return result
}

func computeHash(data interface{}) string {
	var bytes []byte
	switch v := data.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		jsonBytes, _ := json.Marshal(v)
		bytes = jsonBytes
	}
	hash := sha256.Sum256(bytes)
	return hex.EncodeToString(hash[:])
}
