package executor

import (
	"testing"

	"github.com/driftline/driftline/database"
	"github.com/driftline/driftline/internal/planner"
)

func currentUsers() *database.Snapshot {
	return &database.Snapshot{
		Tables: []database.Table{{Name: "users", Engine: "InnoDB"}},
		Columns: []database.Column{
			{TableName: "users", Name: "id", DataType: "int", ColumnType: "int", Position: 1},
			{TableName: "users", Name: "email", DataType: "varchar", ColumnType: "varchar(255)", IsNullable: true, Position: 2},
		},
		Indexes: []database.Index{
			{TableName: "users", Name: "idx_users_email", Columns: []string{"email"}},
		},
	}
}

func TestValidatePlanCleanSchema(t *testing.T) {
	plan := planOf(addColumnOp("users", "nickname"))

	report := validatePlan(plan, currentUsers())
	if !report.Valid {
		t.Errorf("expected valid report, got %+v", report.InvalidOperations)
	}
}

func TestValidatePlanDetectsDrift(t *testing.T) {
	// The column the plan wants to add appeared since planning.
	plan := planOf(addColumnOp("users", "email"))

	report := validatePlan(plan, currentUsers())
	if report.Valid {
		t.Fatal("expected drift to be reported")
	}
	if len(report.InvalidOperations) != 1 {
		t.Fatalf("expected one invalid operation, got %d", len(report.InvalidOperations))
	}
	inv := report.InvalidOperations[0]
	if inv.OperationIndex != 0 || inv.Reason == "" {
		t.Errorf("invalid operation should carry index and reason: %+v", inv)
	}
}

func TestValidatePlanDetectsMissingDropTargets(t *testing.T) {
	plan := planOf(
		planner.Operation{
			Type:  planner.OpDropColumn,
			Table: "users",
			Details: planner.Details{
				Column: &database.Column{TableName: "users", Name: "ghost"},
			},
			RiskLevel: planner.RiskMedium,
		},
		planner.Operation{
			Type:  planner.OpDropIndex,
			Table: "users",
			Details: planner.Details{
				Index: &database.Index{TableName: "users", Name: "idx_missing", Columns: []string{"id"}},
			},
			RiskLevel: planner.RiskMedium,
		},
	)

	report := validatePlan(plan, currentUsers())
	if report.Valid {
		t.Fatal("expected both drops to be reported invalid")
	}
	if len(report.InvalidOperations) != 2 {
		t.Errorf("expected 2 invalid operations, got %d", len(report.InvalidOperations))
	}
}

func TestValidatePlanHonorsEarlierIndexDrop(t *testing.T) {
	// A redefinition drops the index and re-adds it under the same name;
	// the add is applicable because the drop runs first.
	plan := planOf(
		planner.Operation{
			Type:  planner.OpDropIndex,
			Table: "users",
			Details: planner.Details{
				Index: &database.Index{TableName: "users", Name: "idx_users_email", Columns: []string{"email"}},
			},
			RiskLevel: planner.RiskMedium,
		},
		planner.Operation{
			Type:  planner.OpAddIndex,
			Table: "users",
			Details: planner.Details{
				Index: &database.Index{TableName: "users", Name: "idx_users_email", Columns: []string{"email"}, Unique: true},
			},
			RiskLevel: planner.RiskLow,
		},
	)

	report := validatePlan(plan, currentUsers())
	if !report.Valid {
		t.Errorf("expected valid report, got %+v", report.InvalidOperations)
	}
}

func TestValidatePlanHonorsEarlierCreates(t *testing.T) {
	// Operations against a table the plan itself creates are applicable
	// even though the live schema does not have it yet.
	plan := planOf(
		planner.Operation{
			Type:  planner.OpCreateTable,
			Table: "sessions",
			Details: planner.Details{
				TableDef: &database.Table{Name: "sessions", Engine: "InnoDB"},
				Columns: []database.Column{
					{TableName: "sessions", Name: "id", DataType: "int", ColumnType: "int", Position: 1},
				},
			},
			RiskLevel: planner.RiskLow,
		},
		planner.Operation{
			Type:  planner.OpAddIndex,
			Table: "sessions",
			Details: planner.Details{
				Index: &database.Index{TableName: "sessions", Name: "idx_sessions_id", Columns: []string{"id"}},
			},
			RiskLevel: planner.RiskLow,
		},
		planner.Operation{
			Type:  planner.OpAddForeignKey,
			Table: "sessions",
			Details: planner.Details{
				ForeignKey: &database.ForeignKey{
					Name: "fk_sessions_user", TableName: "sessions", Column: "id",
					ReferencedTable: "users", ReferencedColumn: "id",
				},
			},
			RiskLevel: planner.RiskLow,
		},
	)

	report := validatePlan(plan, currentUsers())
	if !report.Valid {
		t.Errorf("expected valid report, got %+v", report.InvalidOperations)
	}
}
