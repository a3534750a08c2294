// Package sqlcheck runs composed structural statements through a real SQL
// parser before they are shown to an operator. Only the PostgreSQL dialect
// has an embeddable parser; for other dialects the check is a no-op.
package sqlcheck

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ForDialect returns a syntax-check function for the given dialect, or nil
// when no parser is available for it.
func ForDialect(dialect string) func(sql string) error {
	if dialect == "postgres" {
		return CheckPostgres
	}
	return nil
}

// CheckPostgres parses one statement with the PostgreSQL grammar and returns
// a descriptive error if it does not parse.
func CheckPostgres(sql string) error {
	if _, err := pg_query.Parse(sql); err != nil {
		return fmt.Errorf("statement does not parse: %w", err)
	}
	return nil
}
