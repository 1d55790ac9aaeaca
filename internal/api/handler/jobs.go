package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/regexrelay/internal/api/response"
	"github.com/kiranshivaraju/regexrelay/internal/store"
	"github.com/kiranshivaraju/regexrelay/pkg/models"
)

// JobService defines the interface the job handlers depend on.
type JobService interface {
	Create(ctx context.Context, inputString, pattern string) (*models.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
// Validation runs asynchronously; the response carries the job in its
// initial Validating state.
func NewCreateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			InputString string `json:"inputString"`
			Pattern     string `json:"pattern"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.InputString == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "inputString is required", nil)
			return
		}

		job, err := svc.Create(r.Context(), req.InputString, req.Pattern)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Created(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobsList, err := svc.List(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if jobsList == nil {
			jobsList = []*models.Job{}
		}
		response.JSON(w, jobsList)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No job with that id", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, job)
	}
}
