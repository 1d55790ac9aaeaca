package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/regexrelay/internal/api/handler"
	"github.com/kiranshivaraju/regexrelay/internal/store"
	"github.com/kiranshivaraju/regexrelay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub service ---

type stubService struct {
	created   *models.Job
	createErr error
	jobs      []*models.Job
	listErr   error
}

func (s *stubService) Create(_ context.Context, inputString, pattern string) (*models.Job, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	job := &models.Job{
		ID:          uuid.New(),
		InputString: inputString,
		Pattern:     pattern,
		Status:      models.JobStatusValidating,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	s.created = job
	return job, nil
}

func (s *stubService) Get(_ context.Context, id uuid.UUID) (*models.Job, error) {
	for _, j := range s.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubService) List(_ context.Context) ([]*models.Job, error) {
	return s.jobs, s.listErr
}

var _ handler.JobService = (*stubService)(nil)

// --- create ---

func TestCreateJob_OK(t *testing.T) {
	svc := &stubService{}
	h := handler.NewCreateJobHandler(svc)

	req := httptest.NewRequest("POST", "/api/v1/jobs",
		strings.NewReader(`{"inputString":"hello123","pattern":"^[a-z]+$"}`))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "hello123", data["inputString"])
	assert.Equal(t, "^[a-z]+$", data["pattern"])
	assert.Equal(t, models.JobStatusValidating, data["status"])
	assert.NotEmpty(t, data["id"])
}

func TestCreateJob_InvalidJSON(t *testing.T) {
	h := handler.NewCreateJobHandler(&stubService{})

	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateJob_MissingInputString(t *testing.T) {
	svc := &stubService{}
	h := handler.NewCreateJobHandler(svc)

	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"pattern":"^a$"}`))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.created)
}

func TestCreateJob_ServiceError(t *testing.T) {
	h := handler.NewCreateJobHandler(&stubService{createErr: errors.New("boom")})

	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"inputString":"x"}`))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// --- list ---

func TestListJobs_OK(t *testing.T) {
	svc := &stubService{jobs: []*models.Job{
		{ID: uuid.New(), InputString: "b", Status: models.JobStatusValid},
		{ID: uuid.New(), InputString: "a", Status: models.JobStatusValidating},
	}}
	h := handler.NewListJobsHandler(svc)

	req := httptest.NewRequest("GET", "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "b", body.Data[0]["inputString"])
}

func TestListJobs_Empty(t *testing.T) {
	h := handler.NewListJobsHandler(&stubService{})

	req := httptest.NewRequest("GET", "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

// --- get ---

func getJobVia(t *testing.T, svc handler.JobService, jobID string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/v1/jobs/{jobID}", handler.NewGetJobHandler(svc))

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+jobID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetJob_OK(t *testing.T) {
	job := &models.Job{ID: uuid.New(), InputString: "x", Status: models.JobStatusValid}
	w := getJobVia(t, &stubService{jobs: []*models.Job{job}}, job.ID.String())

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, job.ID.String(), data["id"])
}

func TestGetJob_NotFound(t *testing.T) {
	w := getJobVia(t, &stubService{}, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJob_BadID(t *testing.T) {
	w := getJobVia(t, &stubService{}, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
