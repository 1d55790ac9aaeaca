package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/regexrelay/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, input_string, pattern, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING created_at, updated_at`,
		job.ID, job.InputString, job.Pattern, job.Status, now,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// UpdateJobStatus performs the guarded transition Validating -> status. The
// WHERE clause also accepts rows already at the target status so duplicate
// deliveries of the same message converge to the same record instead of
// failing. A job already at a different terminal status is left as is and
// returned unchanged.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string) (*models.Job, error) {
	if !models.IsTerminalStatus(status) {
		return nil, fmt.Errorf("update job status: %q is not a terminal status", status)
	}

	var j models.Job
	err := s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status IN ($3, $2)
		 RETURNING id, input_string, pattern, status, created_at, updated_at`,
		id, status, models.JobStatusValidating,
	).Scan(&j.ID, &j.InputString, &j.Pattern, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the id is unknown or the job already reached the other
		// terminal status. Fetch to tell the two apart.
		return s.GetJob(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, input_string, pattern, status, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.InputString, &j.Pattern, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, input_string, pattern, status, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.InputString, &j.Pattern, &j.Status,
			&j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
