package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftline/driftline/database"
)

// ProbeFunc answers whether the referencing column of a prospective foreign
// key currently holds values with no matching referenced row. A nil probe
// means planning runs offline against a saved snapshot; the key is then
// classified low with a note instead of blocking.
type ProbeFunc func(ctx context.Context, fk database.ForeignKey) (bool, error)

// classifyRisk assigns a risk level to one operation. current supplies row
// count estimates for tables the operation touches.
func classifyRisk(ctx context.Context, op *Operation, current *database.Snapshot, probe ProbeFunc) error {
	switch op.Type {
	case OpCreateTable, OpAddIndex:
		op.RiskLevel = RiskLow

	case OpDropTable:
		op.RiskLevel = RiskHigh

	case OpDropIndex:
		op.RiskLevel = RiskMedium

	case OpDropForeignKey:
		op.RiskLevel = RiskLow

	case OpAddColumn:
		col := op.Details.Column
		if col.IsNullable || col.DefaultValue != nil {
			op.RiskLevel = RiskLow
		} else {
			op.RiskLevel = RiskMedium
		}

	case OpDropColumn:
		op.RiskLevel = RiskMedium
		if tableRows(current, op.Table) > 0 {
			op.RiskLevel = RiskHigh
		}

	case OpModifyColumn:
		from, to := op.Details.FromColumn, op.Details.Column
		op.RiskLevel = RiskLow
		if narrowsType(*from, *to) {
			op.RiskLevel = RiskHigh
		}
		// Adding NOT NULL rewrites existing rows; dropping it never does.
		if from.IsNullable && !to.IsNullable && tableRows(current, op.Table) > 0 {
			op.RiskLevel = RiskHigh
		}

	case OpAddForeignKey:
		fk := op.Details.ForeignKey
		// A key on or into a table this plan creates has no rows that
		// could violate it, and the probe query would fail against the
		// still-absent table.
		if current.Table(fk.TableName) == nil || current.Table(fk.ReferencedTable) == nil {
			op.RiskLevel = RiskLow
			return nil
		}
		if probe == nil {
			op.RiskLevel = RiskLow
			op.Details.Notes = append(op.Details.Notes, "planned offline; orphaned-row check skipped")
			return nil
		}
		orphans, err := probe(ctx, *fk)
		if err != nil {
			return fmt.Errorf("probing orphaned rows for %s: %w", fk.Name, err)
		}
		if orphans {
			op.RiskLevel = RiskBlocking
			op.Details.Notes = append(op.Details.Notes,
				fmt.Sprintf("column %s.%s has values with no matching row in %s.%s",
					fk.TableName, fk.Column, fk.ReferencedTable, fk.ReferencedColumn))
		} else {
			op.RiskLevel = RiskLow
		}

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
	return nil
}

func tableRows(snap *database.Snapshot, table string) int64 {
	if t := snap.Table(table); t != nil {
		return t.RowCountEstimate
	}
	return 0
}

// integerWidths ranks the integer families so a move down the list can be
// recognized as a narrowing change.
var integerWidths = map[string]int{
	"tinyint":   1,
	"smallint":  2,
	"int2":      2,
	"mediumint": 3,
	"int":       4,
	"integer":   4,
	"int4":      4,
	"bigint":    8,
	"int8":      8,
}

// narrowsType reports whether rewriting a column from from's type to to's
// type could discard data: a shorter length limit, a smaller integer width,
// or a jump to a different type family entirely.
func narrowsType(from, to database.Column) bool {
	if from.ColumnType == to.ColumnType {
		return false
	}
	if from.MaxLength != nil && to.MaxLength != nil && *to.MaxLength < *from.MaxLength {
		return true
	}
	fw, fok := integerWidths[strings.ToLower(from.DataType)]
	tw, tok := integerWidths[strings.ToLower(to.DataType)]
	if fok && tok {
		return tw < fw
	}
	if fok != tok {
		return true
	}
	// Same-family non-integer changes with no length information are
	// treated as widening unless the base type itself changed.
	return !strings.EqualFold(from.DataType, to.DataType)
}
