package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/metior/internal/analysis"
	"github.com/ternarybob/metior/internal/interfaces"
)

// AnalysisHandler handles job submission and job/metric retrieval
type AnalysisHandler struct {
	orchestrator *analysis.Orchestrator
	jobStorage   interfaces.JobStorage
	metricStore  interfaces.MetricStorage
	logger       arbor.ILogger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(orchestrator *analysis.Orchestrator, jobStorage interfaces.JobStorage, metricStore interfaces.MetricStorage, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		jobStorage:   jobStorage,
		metricStore:  metricStore,
		logger:       logger,
	}
}

type analyzeRequest struct {
	RepoURL     string `json:"repo_url"`
	GithubToken string `json:"github_token,omitempty"`
	Force       bool   `json:"force"`
}

// SubmitHandler starts an analysis job for a repository URL
// POST /api/analyze
func (h *AnalysisHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.RepoURL) == "" {
		WriteError(w, http.StatusBadRequest, "repo_url is required")
		return
	}

	job, err := h.orchestrator.Submit(r.Context(), strings.TrimSpace(req.RepoURL), req.GithubToken, req.Force)
	if err != nil {
		var conflict *analysis.ConflictError
		if errors.As(err, &conflict) {
			WriteJSON(w, http.StatusConflict, map[string]string{
				"status":          "error",
				"error":           "repository already analyzed, resubmit with force to re-analyze",
				"existing_job_id": conflict.ExistingJobID,
			})
			return
		}
		h.logger.Warn().Err(err).Str("repo_url", req.RepoURL).Msg("Submission rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// ListJobsHandler returns recent jobs, newest first
// GET /api/jobs?limit=50
func (h *AnalysisHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	jobs, err := h.jobStorage.ListJobs(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
		"limit": limit,
	})
}

// JobRoutesHandler dispatches /api/jobs/{id} and its subpaths
func (h *AnalysisHandler) JobRoutesHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// parts: ["api", "jobs", "{id}", ...]
	if len(parts) < 3 || parts[2] == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}
	jobID := parts[2]

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			h.getJob(w, r, jobID)
		case http.MethodDelete:
			h.deleteJob(w, r, jobID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 4 && r.Method == http.MethodGet {
		switch parts[3] {
		case "metrics":
			h.getJobMetrics(w, r, jobID)
			return
		case "logs":
			h.getJobLogs(w, r, jobID)
			return
		}
	}

	WriteError(w, http.StatusNotFound, "Not found")
}

func (h *AnalysisHandler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobStorage.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h *AnalysisHandler) getJobLogs(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobStorage.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": job.ID,
		"log":    job.Log,
	})
}

func (h *AnalysisHandler) getJobMetrics(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobStorage.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	metrics, err := h.metricStore.GetMetricsByJob(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load metrics")
		WriteError(w, http.StatusInternalServerError, "Failed to load metrics")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  job.ID,
		"status":  job.Status,
		"metrics": metrics,
		"count":   len(metrics),
	})
}

func (h *AnalysisHandler) deleteJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobStorage.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if !job.IsTerminal() {
		WriteError(w, http.StatusConflict, "Job is still running")
		return
	}

	if err := h.metricStore.DeleteMetricsByJob(r.Context(), jobID); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete metrics")
		WriteError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}
	if err := h.jobStorage.DeleteJob(r.Context(), jobID); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}

	WriteSuccess(w, "Job deleted")
}
