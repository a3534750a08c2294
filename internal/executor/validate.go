package executor

import (
	"fmt"

	"github.com/driftline/driftline/database"
	"github.com/driftline/driftline/internal/planner"
)

// InvalidOperation describes one plan operation that no longer applies to
// the live schema.
type InvalidOperation struct {
	OperationIndex int                   `json:"operationIndex"`
	Type           planner.OperationType `json:"type"`
	Table          string                `json:"table"`
	Reason         string                `json:"reason"`
}

// ValidationReport is the structured result of validate-only mode. Drift is
// reported, not thrown, so the caller decides whether to proceed, force, or
// abandon.
type ValidationReport struct {
	Valid             bool               `json:"valid"`
	InvalidOperations []InvalidOperation `json:"invalidOperations,omitempty"`
}

// validatePlan checks that every operation still applies to the current
// schema. Entities created by earlier operations in the same plan count as
// present; entities dropped by earlier operations count as absent.
func validatePlan(plan *planner.Plan, current *database.Snapshot) ValidationReport {
	report := ValidationReport{Valid: true}

	createdTables := make(map[string]bool)
	droppedTables := make(map[string]bool)
	addedColumns := make(map[string]bool)   // "table.column"
	droppedIndexes := make(map[string]bool) // "table.name"
	droppedFKs := make(map[string]bool)     // "table.name"

	invalid := func(i int, op planner.Operation, format string, args ...interface{}) {
		report.Valid = false
		report.InvalidOperations = append(report.InvalidOperations, InvalidOperation{
			OperationIndex: i,
			Type:           op.Type,
			Table:          op.Table,
			Reason:         fmt.Sprintf(format, args...),
		})
	}

	tableExists := func(name string) bool {
		if createdTables[name] {
			return true
		}
		if droppedTables[name] {
			return false
		}
		return current.Table(name) != nil
	}
	columnExists := func(table, column string) bool {
		if addedColumns[table+"."+column] || createdTables[table] {
			return true
		}
		return current.Column(table, column) != nil
	}

	for i, op := range plan.Migrations {
		switch op.Type {
		case planner.OpCreateTable:
			if tableExists(op.Table) {
				invalid(i, op, "table %s already exists", op.Table)
				continue
			}
			createdTables[op.Table] = true

		case planner.OpDropTable:
			if !tableExists(op.Table) {
				invalid(i, op, "table %s does not exist", op.Table)
				continue
			}
			droppedTables[op.Table] = true

		case planner.OpAddColumn:
			col := op.Details.Column
			if !tableExists(op.Table) {
				invalid(i, op, "table %s does not exist", op.Table)
				continue
			}
			if current.Column(op.Table, col.Name) != nil {
				invalid(i, op, "column %s.%s already exists", op.Table, col.Name)
				continue
			}
			addedColumns[op.Table+"."+col.Name] = true

		case planner.OpModifyColumn, planner.OpDropColumn:
			col := op.Details.Column
			if !tableExists(op.Table) {
				invalid(i, op, "table %s does not exist", op.Table)
				continue
			}
			if !columnExists(op.Table, col.Name) {
				invalid(i, op, "column %s.%s does not exist", op.Table, col.Name)
			}

		case planner.OpAddIndex:
			idx := op.Details.Index
			if !tableExists(op.Table) {
				invalid(i, op, "table %s does not exist", op.Table)
				continue
			}
			if current.Index(op.Table, idx.Name) != nil && !createdTables[op.Table] &&
				!droppedIndexes[op.Table+"."+idx.Name] {
				invalid(i, op, "index %s on %s already exists", idx.Name, op.Table)
			}

		case planner.OpDropIndex:
			idx := op.Details.Index
			if current.Index(op.Table, idx.Name) == nil {
				invalid(i, op, "index %s on %s does not exist", idx.Name, op.Table)
				continue
			}
			droppedIndexes[op.Table+"."+idx.Name] = true

		case planner.OpAddForeignKey:
			fk := op.Details.ForeignKey
			if !tableExists(fk.TableName) {
				invalid(i, op, "table %s does not exist", fk.TableName)
				continue
			}
			if !tableExists(fk.ReferencedTable) {
				invalid(i, op, "referenced table %s does not exist", fk.ReferencedTable)
				continue
			}
			if current.ForeignKey(fk.TableName, fk.Name) != nil && !droppedFKs[fk.TableName+"."+fk.Name] {
				invalid(i, op, "foreign key %s on %s already exists", fk.Name, fk.TableName)
			}

		case planner.OpDropForeignKey:
			fk := op.Details.ForeignKey
			if current.ForeignKey(fk.TableName, fk.Name) == nil {
				invalid(i, op, "foreign key %s on %s does not exist", fk.Name, fk.TableName)
				continue
			}
			droppedFKs[fk.TableName+"."+fk.Name] = true

		default:
			invalid(i, op, "unknown operation type %q", op.Type)
		}
	}

	return report
}
