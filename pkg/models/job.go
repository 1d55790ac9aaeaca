// Package models contains shared data models used across the RegexRelay codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusValidating = "Validating"
	JobStatusValid      = "Valid"
	JobStatusInvalid    = "Invalid"
)

// Job is one validation request and its outcome. A job starts as Validating
// and moves exactly once to Valid or Invalid; the input string and pattern
// never change after creation.
type Job struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	InputString string    `db:"input_string" json:"inputString"`
	Pattern     string    `db:"pattern"      json:"pattern"`
	Status      string    `db:"status"       json:"status"`
	CreatedAt   time.Time `db:"created_at"   json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updatedAt"`
}

// IsTerminalStatus reports whether status is one of the two final states.
func IsTerminalStatus(status string) bool {
	return status == JobStatusValid || status == JobStatusInvalid
}
