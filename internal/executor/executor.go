// Package executor applies, simulates, or validates migration plans against
// a live database. Structural statements auto-commit on the supported
// engines, so atomicity across a plan is emulated by halting on the first
// failure and recording exactly what was and was not applied.
package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/driftline/driftline/database"
	"github.com/driftline/driftline/internal/audit"
	"github.com/driftline/driftline/internal/planner"
)

// OperationStatus is the per-operation outcome.
type OperationStatus string

const (
	StatusApplied   OperationStatus = "applied"
	StatusSimulated OperationStatus = "simulated"
	StatusSkipped   OperationStatus = "skipped"
	StatusFailed    OperationStatus = "failed"
)

// ResultStatus is the overall outcome of one run.
type ResultStatus string

const (
	ResultSuccess          ResultStatus = "success"
	ResultPartialFailure   ResultStatus = "partial_failure"
	ResultValidationFailed ResultStatus = "validation_failed"
	ResultSimulated        ResultStatus = "simulated"
)

// OperationResult records the outcome of one plan operation.
type OperationResult struct {
	OperationIndex int                   `json:"operationIndex"`
	Type           planner.OperationType `json:"type"`
	Table          string                `json:"table"`
	Status         OperationStatus       `json:"status"`
	SQL            string                `json:"sql,omitempty"`
	Error          string                `json:"error,omitempty"`
	Warning        string                `json:"warning,omitempty"`
}

// ExecutionResult is returned from every run, whichever mode.
type ExecutionResult struct {
	ExecutionID string            `json:"executionId"`
	Status      ResultStatus      `json:"status"`
	Results     []OperationResult `json:"results"`
	Validation  *ValidationReport `json:"validation,omitempty"`
	BackupPath  string            `json:"backupPath,omitempty"`
	DurationMs  int64             `json:"durationMs"`

	// DataBackupRecommended is set when the plan contains operations with
	// risk at or above medium; the structural backup alone does not
	// preserve row data.
	DataBackupRecommended bool `json:"dataBackupRecommended,omitempty"`
}

// Options selects the execution mode. ValidateOnly wins over DryRun; with
// neither set the plan is actually applied.
type Options struct {
	ValidateOnly bool
	DryRun       bool

	// Force acknowledges blocking-risk operations. Without it, execute
	// mode refuses to start on a plan containing any.
	Force bool
}

// Executor runs plans against one target database. SyntaxCheck, when set,
// is run over every composed statement during dry-run and reported as a
// per-operation warning.
type Executor struct {
	DB          *sql.DB
	Driver      database.Driver
	Audit       *audit.Store
	BackupDir   string
	SyntaxCheck func(sql string) error
}

func New(db *sql.DB, driver database.Driver, backupDir string) *Executor {
	return &Executor{
		DB:        db,
		Driver:    driver,
		Audit:     audit.NewStore(db, driver),
		BackupDir: backupDir,
	}
}

// ExecuteMigrationPlan runs one plan in the selected mode. Every invocation
// acquires the advisory lock, persists an audit record, and releases the
// lock unconditionally, including on failure.
func (e *Executor) ExecuteMigrationPlan(ctx context.Context, plan *planner.Plan, opts Options) (*ExecutionResult, error) {
	executionID := uuid.NewString()
	started := time.Now()
	result := &ExecutionResult{ExecutionID: executionID}

	if err := e.Audit.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	summaryJSON, err := json.Marshal(plan.Summary)
	if err != nil {
		return nil, fmt.Errorf("marshaling plan summary: %w", err)
	}
	dryish := opts.DryRun || opts.ValidateOnly
	if err := e.Audit.Begin(ctx, executionID, string(summaryJSON), dryish); err != nil {
		return nil, err
	}

	lock := &advisoryLock{db: e.DB, gen: e.Driver}
	if err := lock.acquire(ctx, executionID); err != nil {
		e.finalize(ctx, executionID, result, started, err)
		return nil, err
	}
	defer func() {
		if err := lock.release(context.WithoutCancel(ctx), executionID); err != nil {
			log.Printf("warning: %v", err)
		}
	}()

	runErr := e.run(ctx, plan, opts, result)
	e.finalize(ctx, executionID, result, started, runErr)
	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, plan *planner.Plan, opts Options, result *ExecutionResult) error {
	switch {
	case opts.ValidateOnly:
		return e.runValidate(ctx, plan, result)
	case opts.DryRun:
		return e.runDryRun(plan, result)
	default:
		return e.runExecute(ctx, plan, opts, result)
	}
}

func (e *Executor) runValidate(ctx context.Context, plan *planner.Plan, result *ExecutionResult) error {
	current, err := e.Driver.Snapshot(ctx, e.DB)
	if err != nil {
		return fmt.Errorf("introspecting current schema: %w", err)
	}

	report := validatePlan(plan, current)
	result.Validation = &report
	if report.Valid {
		result.Status = ResultSuccess
	} else {
		result.Status = ResultValidationFailed
	}
	return nil
}

func (e *Executor) runDryRun(plan *planner.Plan, result *ExecutionResult) error {
	for i, op := range plan.Migrations {
		stmt, _, err := planner.RenderSQL(op, e.Driver)
		if err != nil {
			return fmt.Errorf("composing statement for operation %d: %w", i, err)
		}
		r := OperationResult{
			OperationIndex: i,
			Type:           op.Type,
			Table:          op.Table,
			Status:         StatusSimulated,
			SQL:            stmt,
		}
		if e.SyntaxCheck != nil {
			if err := e.SyntaxCheck(stmt); err != nil {
				r.Warning = err.Error()
			}
		}
		result.Results = append(result.Results, r)
	}
	result.Status = ResultSimulated
	return nil
}

func (e *Executor) runExecute(ctx context.Context, plan *planner.Plan, opts Options, result *ExecutionResult) error {
	for i, op := range plan.Migrations {
		if op.RiskLevel == planner.RiskBlocking && !opts.Force {
			return &BlockingRiskError{OperationIndex: i, Table: op.Table}
		}
		if op.RiskLevel.AtLeast(planner.RiskMedium) {
			result.DataBackupRecommended = true
		}
	}

	backupPath, err := captureBackup(ctx, e.DB, e.Driver, plan, e.BackupDir, result.ExecutionID)
	if err != nil {
		return err
	}
	result.BackupPath = backupPath

	var failed *StatementError
	for i, op := range plan.Migrations {
		r := OperationResult{
			OperationIndex: i,
			Type:           op.Type,
			Table:          op.Table,
		}
		if failed != nil {
			r.Status = StatusSkipped
			result.Results = append(result.Results, r)
			continue
		}

		stmt, desc, err := planner.RenderSQL(op, e.Driver)
		if err != nil {
			failed = &StatementError{OperationIndex: i, Cause: err}
			r.Status = StatusFailed
			r.Error = err.Error()
			result.Results = append(result.Results, r)
			continue
		}
		r.SQL = stmt

		log.Printf("applying operation %d/%d: %s", i+1, len(plan.Migrations), desc)
		if _, err := e.DB.ExecContext(ctx, stmt); err != nil {
			failed = &StatementError{OperationIndex: i, SQL: stmt, Cause: err}
			r.Status = StatusFailed
			r.Error = err.Error()
			result.Results = append(result.Results, r)
			continue
		}
		r.Status = StatusApplied
		result.Results = append(result.Results, r)
	}

	if failed != nil {
		result.Status = ResultPartialFailure
		return failed
	}
	result.Status = ResultSuccess
	return nil
}

// finalize completes the audit record. Audit failures are logged rather
// than surfaced so they never mask the run's own outcome.
func (e *Executor) finalize(ctx context.Context, executionID string, result *ExecutionResult, started time.Time, runErr error) {
	result.DurationMs = time.Since(started).Milliseconds()

	if result.Results == nil {
		result.Results = []OperationResult{}
	}
	resultsJSON, err := json.Marshal(result.Results)
	if err != nil {
		log.Printf("warning: marshaling operation results: %v", err)
		resultsJSON = []byte("[]")
	}

	var backupPath, errorMessage *string
	if result.BackupPath != "" {
		backupPath = &result.BackupPath
	}
	if runErr != nil {
		msg := runErr.Error()
		errorMessage = &msg
	}

	ctx = context.WithoutCancel(ctx)
	if err := e.Audit.Finalize(ctx, executionID, string(resultsJSON), result.DurationMs, backupPath, errorMessage); err != nil {
		log.Printf("warning: %v", err)
	}
}

// History returns the most recent execution records, newest first.
func (e *Executor) History(ctx context.Context, limit int) ([]audit.Record, error) {
	if err := e.Audit.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return e.Audit.History(ctx, limit)
}
