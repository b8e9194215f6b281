package repository

import (
	"errors"
	"strings"
)

var (
	// ErrConflict reports that a conditional write lost a race with a concurrent writer.
	ErrConflict = errors.New("concurrent modification")
)

// isUniqueViolation works for both SQLite and PostgreSQL error strings.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value") ||
		strings.Contains(errStr, "constraint failed: UNIQUE")
}
