package planner

import (
	"fmt"
	"strings"
)

// InvalidDesiredSchemaError reports a malformed or self-inconsistent desired
// schema, with one entry per offending element. Planning aborts before any
// plan is produced.
type InvalidDesiredSchemaError struct {
	Issues []string
}

func (e *InvalidDesiredSchemaError) Error() string {
	return fmt.Sprintf("invalid desired schema:\n  %s", strings.Join(e.Issues, "\n  "))
}
