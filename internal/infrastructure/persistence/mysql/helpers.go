package mysql

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/entity"
)

// nullString converts a string to sql.NullString.
// Returns NULL if the string is empty.
func nullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

// stringValue converts sql.NullString to string.
// Returns empty string if the value is NULL.
func stringValue(ns sql.NullString) string {
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

// floatPtr converts sql.NullFloat64 to an optional float.
func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

// priorityValue stores the zero priority of registry events as NULL.
func priorityValue(p entity.Priority) sql.NullString {
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

// isDuplicateError checks if an error is a duplicate key constraint violation.
func isDuplicateError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062 // ER_DUP_ENTRY
	}
	return false
}
