package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/metior/internal/analysis"
	"github.com/ternarybob/metior/internal/interfaces"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleSubmitAnalysis implements the submit_analysis tool
func handleSubmitAnalysis(orchestrator *analysis.Orchestrator, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoURL, err := request.RequireString("repo_url")
		if err != nil || repoURL == "" {
			return textResult("Error: repo_url parameter is required"), nil
		}
		force := request.GetBool("force", false)

		job, err := orchestrator.Submit(ctx, repoURL, "", force)
		if err != nil {
			var conflict *analysis.ConflictError
			if errors.As(err, &conflict) {
				return textResult(fmt.Sprintf(
					"Repository already analyzed by job %s. Pass force=true to re-analyze.",
					conflict.ExistingJobID)), nil
			}
			logger.Error().Err(err).Str("repo_url", repoURL).Msg("Submission failed")
			return textResult(fmt.Sprintf("Submission failed: %v", err)), nil
		}

		return textResult(fmt.Sprintf(
			"Analysis started.\n\n- Job ID: %s\n- Repository: %s/%s\n- Status: %s\n\nPoll get_job_status with the job ID for progress.",
			job.ID, job.RepoOwner, job.RepoName, job.Status)), nil
	}
}

// handleGetJobStatus implements the get_job_status tool
func handleGetJobStatus(jobStorage interfaces.JobStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return textResult("Error: job_id parameter is required"), nil
		}

		job, err := jobStorage.GetJob(ctx, jobID)
		if err != nil {
			return textResult(fmt.Sprintf("Job not found: %s", jobID)), nil
		}

		return textResult(formatJobStatus(job)), nil
	}
}

// handleGetJobMetrics implements the get_job_metrics tool
func handleGetJobMetrics(jobStorage interfaces.JobStorage, metricStore interfaces.MetricStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return textResult("Error: job_id parameter is required"), nil
		}

		job, err := jobStorage.GetJob(ctx, jobID)
		if err != nil {
			return textResult(fmt.Sprintf("Job not found: %s", jobID)), nil
		}

		metrics, err := metricStore.GetMetricsByJob(ctx, jobID)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load metrics")
			return textResult(fmt.Sprintf("Failed to load metrics: %v", err)), nil
		}

		return textResult(formatMetrics(job, metrics)), nil
	}
}

// handleListJobs implements the list_jobs tool
func handleListJobs(jobStorage interfaces.JobStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if limit > 100 {
			limit = 100
		}

		jobs, err := jobStorage.ListJobs(ctx, limit)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list jobs")
			return textResult(fmt.Sprintf("Failed to list jobs: %v", err)), nil
		}

		return textResult(formatJobList(jobs)), nil
	}
}
