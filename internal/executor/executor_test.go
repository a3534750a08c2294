package executor

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/driftline/driftline/database"
	"github.com/driftline/driftline/database/mysql"
	"github.com/driftline/driftline/internal/planner"
)

func newTestExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening stub connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, mysql.NewDriver(), t.TempDir()), mock
}

// expectRunStart covers the bookkeeping every run performs before any mode
// logic: audit table, initial audit row, lock table, lock acquisition.
func expectRunStart(mock sqlmock.Sqlmock) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `driftline_executions`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `driftline_executions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `driftline_lock`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `driftline_lock`").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

// expectRunEnd covers the audit finalize and the unconditional lock release.
func expectRunEnd(mock sqlmock.Sqlmock) {
	mock.ExpectExec("UPDATE `driftline_executions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `driftline_lock`").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func addColumnOp(table, column string) planner.Operation {
	return planner.Operation{
		Type:  planner.OpAddColumn,
		Table: table,
		Details: planner.Details{
			Column: &database.Column{
				TableName: table, Name: column,
				DataType: "varchar", ColumnType: "varchar(50)", IsNullable: true,
			},
		},
		RiskLevel: planner.RiskLow,
	}
}

func planOf(ops ...planner.Operation) *planner.Plan {
	return &planner.Plan{
		Migrations: ops,
		Summary:    planner.Summarize(ops),
	}
}

func TestExecuteHaltsOnFirstFailure(t *testing.T) {
	exec, mock := newTestExecutor(t)

	plan := planOf(
		addColumnOp("users", "a"),
		addColumnOp("users", "b"),
		addColumnOp("users", "c"),
		addColumnOp("users", "d"),
		addColumnOp("users", "e"),
	)

	expectRunStart(mock)
	mock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("users", "CREATE TABLE `users` (`id` int NOT NULL)"))
	mock.ExpectExec("ALTER TABLE `users` ADD COLUMN `a`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE `users` ADD COLUMN `b`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE `users` ADD COLUMN `c`").WillReturnError(errors.New("Duplicate column name 'c'"))
	expectRunEnd(mock)

	result, err := exec.ExecuteMigrationPlan(context.Background(), plan, Options{})
	var stmtErr *StatementError
	if !errors.As(err, &stmtErr) {
		t.Fatalf("expected StatementError, got %v", err)
	}
	if stmtErr.OperationIndex != 2 {
		t.Errorf("failure should report operation index 2, got %d", stmtErr.OperationIndex)
	}

	if result.Status != ResultPartialFailure {
		t.Errorf("expected partial_failure, got %s", result.Status)
	}
	wantStatuses := []OperationStatus{StatusApplied, StatusApplied, StatusFailed, StatusSkipped, StatusSkipped}
	if len(result.Results) != len(wantStatuses) {
		t.Fatalf("expected %d results, got %d", len(wantStatuses), len(result.Results))
	}
	for i, want := range wantStatuses {
		if result.Results[i].Status != want {
			t.Errorf("operation %d: expected %s, got %s", i, want, result.Results[i].Status)
		}
	}
	if result.Results[2].Error == "" {
		t.Error("failed operation should carry an error message")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecuteSuccessWritesBackup(t *testing.T) {
	exec, mock := newTestExecutor(t)

	plan := planOf(addColumnOp("users", "nickname"))

	expectRunStart(mock)
	mock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).
			AddRow("users", "CREATE TABLE `users` (`id` int NOT NULL)"))
	mock.ExpectExec("ALTER TABLE `users` ADD COLUMN `nickname`").WillReturnResult(sqlmock.NewResult(0, 0))
	expectRunEnd(mock)

	result, err := exec.ExecuteMigrationPlan(context.Background(), plan, Options{})
	if err != nil {
		t.Fatalf("ExecuteMigrationPlan failed: %v", err)
	}
	if result.Status != ResultSuccess {
		t.Errorf("expected success, got %s", result.Status)
	}
	if result.BackupPath == "" {
		t.Fatal("execute mode must capture a structural backup")
	}
	data, err := os.ReadFile(result.BackupPath)
	if err != nil {
		t.Fatalf("reading backup file: %v", err)
	}
	if len(data) == 0 {
		t.Error("backup file is empty")
	}
	if result.DataBackupRecommended {
		t.Error("low-risk plan should not recommend a data backup")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDryRunComposesWithoutExecuting(t *testing.T) {
	exec, mock := newTestExecutor(t)

	drop := planner.Operation{
		Type:  planner.OpDropColumn,
		Table: "users",
		Details: planner.Details{
			Column: &database.Column{TableName: "users", Name: "nickname", DataType: "varchar", ColumnType: "varchar(50)"},
		},
		RiskLevel: planner.RiskMedium,
	}
	plan := planOf(drop)

	// Only bookkeeping statements run in dry-run mode: no backup, no ALTER.
	expectRunStart(mock)
	expectRunEnd(mock)

	result, err := exec.ExecuteMigrationPlan(context.Background(), plan, Options{DryRun: true})
	if err != nil {
		t.Fatalf("ExecuteMigrationPlan failed: %v", err)
	}
	if result.Status != ResultSimulated {
		t.Errorf("expected simulated, got %s", result.Status)
	}
	if len(result.Results) != 1 || result.Results[0].Status != StatusSimulated {
		t.Fatalf("expected one simulated result, got %+v", result.Results)
	}
	if result.Results[0].SQL == "" {
		t.Error("dry-run must record the exact statement that would be issued")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecuteRefusesBlockingRiskWithoutForce(t *testing.T) {
	exec, mock := newTestExecutor(t)

	blocking := planner.Operation{
		Type:  planner.OpAddForeignKey,
		Table: "orders",
		Details: planner.Details{
			ForeignKey: &database.ForeignKey{
				Name: "fk_orders_user", TableName: "orders", Column: "user_id",
				ReferencedTable: "users", ReferencedColumn: "id",
			},
		},
		RiskLevel: planner.RiskBlocking,
	}
	plan := planOf(blocking)

	// Refusal happens before the backup; only bookkeeping statements run.
	expectRunStart(mock)
	expectRunEnd(mock)

	_, err := exec.ExecuteMigrationPlan(context.Background(), plan, Options{})
	var blockErr *BlockingRiskError
	if !errors.As(err, &blockErr) {
		t.Fatalf("expected BlockingRiskError, got %v", err)
	}
	if blockErr.OperationIndex != 0 {
		t.Errorf("expected operation index 0, got %d", blockErr.OperationIndex)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecuteFailsFastWhenLockHeld(t *testing.T) {
	exec, mock := newTestExecutor(t)

	plan := planOf(addColumnOp("users", "nickname"))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `driftline_executions`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `driftline_executions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `driftline_lock`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `driftline_lock`").
		WillReturnError(errors.New("Duplicate entry '1' for key 'PRIMARY'"))
	mock.ExpectQuery("SELECT token FROM `driftline_lock`").
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("other-execution"))
	// The audit record is still finalized; the lock is not released since we
	// never held it.
	mock.ExpectExec("UPDATE `driftline_executions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := exec.ExecuteMigrationPlan(context.Background(), plan, Options{})
	var concErr *ConcurrencyError
	if !errors.As(err, &concErr) {
		t.Fatalf("expected ConcurrencyError, got %v", err)
	}
	if concErr.HolderToken != "other-execution" {
		t.Errorf("expected holder token from lock row, got %q", concErr.HolderToken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecuteAbortsWhenBackupFails(t *testing.T) {
	exec, mock := newTestExecutor(t)

	plan := planOf(addColumnOp("users", "nickname"))

	expectRunStart(mock)
	mock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnError(errors.New("SHOW command denied"))
	expectRunEnd(mock)

	_, err := exec.ExecuteMigrationPlan(context.Background(), plan, Options{})
	var backupErr *BackupError
	if !errors.As(err, &backupErr) {
		t.Fatalf("expected BackupError, got %v", err)
	}
	if backupErr.Table != "users" {
		t.Errorf("expected failing table users, got %q", backupErr.Table)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
