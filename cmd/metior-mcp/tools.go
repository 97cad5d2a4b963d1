package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSubmitAnalysisTool returns the submit_analysis tool definition
func createSubmitAnalysisTool() mcp.Tool {
	return mcp.NewTool("submit_analysis",
		mcp.WithDescription("Start a metric analysis job for a GitHub repository. Returns the job ID to poll with get_job_status."),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Repository URL (e.g. https://github.com/owner/name)"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Re-analyze even if the repository already has a job"),
		),
	)
}

// createGetJobStatusTool returns the get_job_status tool definition
func createGetJobStatusTool() mcp.Tool {
	return mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status, stage, and log of an analysis job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_{uuid})"),
		),
	)
}

// createGetJobMetricsTool returns the get_job_metrics tool definition
func createGetJobMetricsTool() mcp.Tool {
	return mcp.NewTool("get_job_metrics",
		mcp.WithDescription("Get the ranked metrics produced by a completed analysis job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_{uuid})"),
		),
	)
}

// createListJobsTool returns the list_jobs tool definition
func createListJobsTool() mcp.Tool {
	return mcp.NewTool("list_jobs",
		mcp.WithDescription("List recent analysis jobs, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}
