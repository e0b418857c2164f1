package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// nullString converts a string to sql.NullString.
// Empty strings are stored as NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// stringFromNull converts sql.NullString back to string.
// Returns empty string for NULL values.
func stringFromNull(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// nullFloat converts an optional float to sql.NullFloat64.
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// floatFromNull converts sql.NullFloat64 back to an optional float.
func floatFromNull(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

// timeToString converts time.Time to its stored UTC text form.
func timeToString(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// priorityToString stores the zero priority of registry events as NULL.
func priorityToString(p entity.Priority) sql.NullString {
	if !p.Valid() {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: p.String(), Valid: true}
}

// priorityFromNull parses a stored priority; NULL yields the zero value.
func priorityFromNull(ns sql.NullString) entity.Priority {
	if !ns.Valid {
		return 0
	}
	p, _ := entity.ParsePriority(ns.String)
	return p
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
