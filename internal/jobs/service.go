// Package jobs implements job intake and the listing surface.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/regexrelay/internal/broker"
	"github.com/kiranshivaraju/regexrelay/internal/notify"
	"github.com/kiranshivaraju/regexrelay/internal/store"
	"github.com/kiranshivaraju/regexrelay/pkg/models"
)

// Service accepts new validation jobs and exposes read access to existing
// ones. Create returns as soon as the job is stored and enqueued; it never
// waits for validation.
type Service struct {
	store          store.Store
	publisher      broker.Publisher
	notifier       *notify.Broadcaster
	defaultPattern string
}

func NewService(s store.Store, p broker.Publisher, n *notify.Broadcaster, defaultPattern string) *Service {
	return &Service{
		store:          s,
		publisher:      p,
		notifier:       n,
		defaultPattern: defaultPattern,
	}
}

// Create writes the initial Validating record, pushes the initial snapshot
// to observers, and then enqueues the validation request, so the job is
// visible before the worker can run. An empty pattern falls back to the
// configured default.
func (s *Service) Create(ctx context.Context, inputString, pattern string) (*models.Job, error) {
	if pattern == "" {
		pattern = s.defaultPattern
	}

	job := &models.Job{
		ID:          uuid.New(),
		InputString: inputString,
		Pattern:     pattern,
		Status:      models.JobStatusValidating,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// Broadcast the Validating snapshot before the request is enqueued, so
	// observers always see the job appear before any terminal event for it.
	s.notifier.Publish(*job)

	body, err := broker.EncodeValidationRequest(broker.ValidationRequest{
		ID:          job.ID.String(),
		InputString: job.InputString,
		Pattern:     job.Pattern,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, body); err != nil {
		// The record exists but no request is queued; the job stays
		// observable in Validating.
		return nil, fmt.Errorf("enqueue validation request: %w", err)
	}

	slog.Info("job created", "job_id", job.ID, "pattern", job.Pattern)
	return job, nil
}

// Get returns a single job, or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.store.GetJob(ctx, id)
}

// List returns all jobs, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Job, error) {
	return s.store.ListJobs(ctx)
}
