package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/regexrelay/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateID = errors.New("duplicate job id")

// Store is the data access interface. All database operations go through here.
// The store is the single authoritative copy of job state; it persists records
// and nothing else — publishing change notifications is the caller's job.
type Store interface {
	Ping(ctx context.Context) error

	// CreateJob persists a new record with store-assigned timestamps.
	// Returns ErrDuplicateID if the id already exists.
	CreateJob(ctx context.Context, job *models.Job) error

	// UpdateJobStatus atomically moves a job to a terminal status and returns
	// the new record. The transition is monotonic: once a job is terminal,
	// repeat calls with the same status are no-ops that return the stored
	// record, and calls with a different status leave it untouched.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string) (*models.Job, error)

	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)

	// ListJobs returns all jobs ordered by creation time, most recent first.
	ListJobs(ctx context.Context) ([]*models.Job, error)
}
