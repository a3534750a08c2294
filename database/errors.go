package database

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaUnavailableError indicates that the structural catalog itself is
// unreachable (no connection, catalog query refused). Partial metadata
// unavailability never produces this error; affected tables are omitted
// from the snapshot with a warning instead.
type SchemaUnavailableError struct {
	Cause error
}

func (e *SchemaUnavailableError) Error() string {
	return fmt.Sprintf("schema catalog unavailable: %v", e.Cause)
}

func (e *SchemaUnavailableError) Unwrap() error { return e.Cause }

// IsSchemaUnavailable reports whether err wraps a SchemaUnavailableError.
func IsSchemaUnavailable(err error) bool {
	var target *SchemaUnavailableError
	return errors.As(err, &target)
}

// DetectDriver infers the dialect name from a connection string.
// PostgreSQL URLs use the postgres:// or postgresql:// scheme; MySQL is
// recognized by the go-sql-driver DSN form (user:pass@tcp(host)/db) or an
// explicit mysql:// prefix.
func DetectDriver(connStr string) (string, error) {
	lower := strings.ToLower(connStr)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql", nil
	case strings.Contains(connStr, "@tcp("), strings.Contains(connStr, "@unix("):
		return "mysql", nil
	}
	return "", fmt.Errorf("cannot detect database dialect from connection string %q", connStr)
}

// SQLDriverName maps a dialect name to the database/sql driver name
// registered by the imported driver packages.
func SQLDriverName(dialect string) string {
	switch dialect {
	case "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	default:
		return dialect
	}
}

// NormalizeDSN strips an explicit mysql:// scheme so the string can be passed
// to go-sql-driver, which expects a bare DSN.
func NormalizeDSN(dialect, connStr string) string {
	if dialect == "mysql" {
		return strings.TrimPrefix(connStr, "mysql://")
	}
	return connStr
}
