package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/models"
)

// mockJobStorage implements interfaces.JobStorage for handler tests
type mockJobStorage struct {
	jobs map[string]*models.Job
}

func (m *mockJobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

func (m *mockJobStorage) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	var jobs []*models.Job
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (m *mockJobStorage) DeleteJob(ctx context.Context, jobID string) error {
	delete(m.jobs, jobID)
	return nil
}

func (m *mockJobStorage) GetJobIDByURL(ctx context.Context, repoURL string) (string, error) {
	return "", nil
}

func (m *mockJobStorage) SetJobIDForURL(ctx context.Context, repoURL, jobID string) error {
	return nil
}

func (m *mockJobStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

// mockMetricStorage implements interfaces.MetricStorage for handler tests
type mockMetricStorage struct {
	metrics map[string][]*models.ConsolidatedMetric
}

func (m *mockMetricStorage) SaveMetrics(ctx context.Context, metrics []*models.ConsolidatedMetric) error {
	for _, metric := range metrics {
		m.metrics[metric.JobID] = append(m.metrics[metric.JobID], metric)
	}
	return nil
}

func (m *mockMetricStorage) GetMetricsByJob(ctx context.Context, jobID string) ([]*models.ConsolidatedMetric, error) {
	return m.metrics[jobID], nil
}

func (m *mockMetricStorage) DeleteMetricsByJob(ctx context.Context, jobID string) error {
	delete(m.metrics, jobID)
	return nil
}

func newTestHandler() (*AnalysisHandler, *mockJobStorage, *mockMetricStorage) {
	jobs := &mockJobStorage{jobs: make(map[string]*models.Job)}
	metrics := &mockMetricStorage{metrics: make(map[string][]*models.ConsolidatedMetric)}
	h := NewAnalysisHandler(nil, jobs, metrics, common.GetLogger())
	return h, jobs, metrics
}

func completedJob(id string) *models.Job {
	now := time.Now().UTC()
	return &models.Job{
		ID:           id,
		RepoURL:      "https://github.com/acme/shop",
		RepoOwner:    "acme",
		RepoName:     "shop",
		Status:       models.JobStatusCompleted,
		CurrentStage: models.StageHandoff,
		ResultCount:  2,
		CreatedAt:    now,
		CompletedAt:  &now,
	}
}

func TestSubmitHandler_RejectsBadRequests(t *testing.T) {
	h, _, _ := newTestHandler()

	// Wrong method
	rec := httptest.NewRecorder()
	h.SubmitHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Invalid body
	rec = httptest.NewRecorder()
	h.SubmitHandler(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing repo_url
	rec = httptest.NewRecorder()
	h.SubmitHandler(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"repo_url": "  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob(t *testing.T) {
	h, jobs, _ := newTestHandler()
	jobs.jobs["job_1"] = completedJob("job_1")

	rec := httptest.NewRecorder()
	h.JobRoutesHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "job_1", got.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)

	rec = httptest.NewRecorder()
	h.JobRoutesHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobMetrics(t *testing.T) {
	h, jobs, metrics := newTestHandler()
	jobs.jobs["job_1"] = completedJob("job_1")
	metrics.metrics["job_1"] = []*models.ConsolidatedMetric{
		{ID: "met_1", JobID: "job_1", Name: "Error Rate"},
		{ID: "met_2", JobID: "job_1", Name: "Active Users"},
	}

	rec := httptest.NewRecorder()
	h.JobRoutesHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_1/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		JobID   string                      `json:"job_id"`
		Metrics []*models.ConsolidatedMetric `json:"metrics"`
		Count   int                         `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "job_1", resp.JobID)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Metrics, 2)
}

func TestDeleteJob(t *testing.T) {
	h, jobs, metrics := newTestHandler()
	jobs.jobs["job_1"] = completedJob("job_1")
	metrics.metrics["job_1"] = []*models.ConsolidatedMetric{{ID: "met_1", JobID: "job_1"}}

	running := completedJob("job_2")
	running.Status = models.JobStatusAnalyzing
	running.CompletedAt = nil
	jobs.jobs["job_2"] = running

	// Running jobs cannot be deleted
	rec := httptest.NewRecorder()
	h.JobRoutesHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/jobs/job_2", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.JobRoutesHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/jobs/job_1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, jobs.jobs, "job_1")
	assert.NotContains(t, metrics.metrics, "job_1")
}

func TestListJobsHandler(t *testing.T) {
	h, jobs, _ := newTestHandler()
	jobs.jobs["job_1"] = completedJob("job_1")

	rec := httptest.NewRecorder()
	h.ListJobsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
		Limit int `json:"limit"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 10, resp.Limit)
}

func TestJobRoutesHandler_UnknownSubpath(t *testing.T) {
	h, jobs, _ := newTestHandler()
	jobs.jobs["job_1"] = completedJob("job_1")

	rec := httptest.NewRecorder()
	h.JobRoutesHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_1/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
