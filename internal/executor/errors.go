package executor

import "fmt"

// ConcurrencyError means another execution already holds the advisory lock
// for the target database. The caller should retry after the other run
// completes rather than queuing.
type ConcurrencyError struct {
	HolderToken string
}

func (e *ConcurrencyError) Error() string {
	if e.HolderToken != "" {
		return fmt.Sprintf("another execution is in progress (lock token %s)", e.HolderToken)
	}
	return "another execution is in progress"
}

// BlockingRiskError means the plan contains a blocking-risk operation and
// the caller did not set the force option.
type BlockingRiskError struct {
	OperationIndex int
	Table          string
}

func (e *BlockingRiskError) Error() string {
	return fmt.Sprintf("operation %d on table %s carries blocking risk; re-run with force to proceed", e.OperationIndex, e.Table)
}

// BackupError means the structural backup could not be captured. Execution
// aborts before any statement runs.
type BackupError struct {
	Table string
	Cause error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("capturing structural backup of %s: %v", e.Table, e.Cause)
}

func (e *BackupError) Unwrap() error { return e.Cause }

// StatementError means one structural statement failed during execution.
// Everything applied before it stays applied; everything after it is
// skipped.
type StatementError struct {
	OperationIndex int
	SQL            string
	Cause          error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("operation %d failed: %v", e.OperationIndex, e.Cause)
}

func (e *StatementError) Unwrap() error { return e.Cause }
