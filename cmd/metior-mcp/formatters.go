package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/metior/internal/models"
)

// formatJobStatus renders a job as markdown for MCP clients
func formatJobStatus(job *models.Job) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Job %s\n\n", job.ID)
	fmt.Fprintf(&sb, "- **Repository:** %s/%s\n", job.RepoOwner, job.RepoName)
	fmt.Fprintf(&sb, "- **Status:** %s (stage %d/5)\n", job.Status, job.CurrentStage)
	fmt.Fprintf(&sb, "- **Progress:** %s\n", job.ProgressMessage)
	fmt.Fprintf(&sb, "- **Files:** %d fetched of %d in tree\n", job.FetchedFiles, job.TotalFiles)
	if job.Status == models.JobStatusCompleted {
		fmt.Fprintf(&sb, "- **Metrics:** %d\n", job.ResultCount)
	}
	if job.Status == models.JobStatusFailed {
		fmt.Fprintf(&sb, "- **Error:** [%s] %s\n", job.ErrorKind, job.ErrorMessage)
	}

	if len(job.Log) > 0 {
		sb.WriteString("\n## Recent log\n\n")
		start := len(job.Log) - 10
		if start < 0 {
			start = 0
		}
		for _, entry := range job.Log[start:] {
			fmt.Fprintf(&sb, "- `%s` [%s] %s\n",
				entry.Timestamp.Format("15:04:05"), entry.Tag, entry.Message)
		}
	}

	return sb.String()
}

// formatMetrics renders a job's consolidated metrics as a markdown table
func formatMetrics(job *models.Job, metrics []*models.ConsolidatedMetric) string {
	if len(metrics) == 0 {
		return fmt.Sprintf("No metrics for job %s (status: %s).", job.ID, job.Status)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Metrics for %s/%s (%d)\n\n", job.RepoOwner, job.RepoName, len(metrics))
	sb.WriteString("| # | Metric | Category | Type | Mentions | Score |\n")
	sb.WriteString("|---|--------|----------|------|----------|-------|\n")
	for _, m := range metrics {
		name := m.Name
		if m.FallbackSourced {
			name += " (fallback)"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %d | %.2f |\n",
			m.DisplayOrder+1, name, m.Category, m.DataType, m.Mentions, m.Score)
	}

	sb.WriteString("\n## Details\n\n")
	for _, m := range metrics {
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", m.Name, m.Description)
		if len(m.SuggestedSources) > 0 {
			fmt.Fprintf(&sb, "Suggested sources: %s\n\n", strings.Join(m.SuggestedSources, "; "))
		}
	}

	return sb.String()
}

// formatJobList renders recent jobs as a markdown table
func formatJobList(jobs []*models.Job) string {
	if len(jobs) == 0 {
		return "No analysis jobs yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Analysis jobs (%d)\n\n", len(jobs))
	sb.WriteString("| Job ID | Repository | Status | Stage | Metrics | Created |\n")
	sb.WriteString("|--------|------------|--------|-------|---------|--------|\n")
	for _, job := range jobs {
		fmt.Fprintf(&sb, "| %s | %s/%s | %s | %d/5 | %d | %s |\n",
			job.ID, job.RepoOwner, job.RepoName, job.Status, job.CurrentStage,
			job.ResultCount, job.CreatedAt.Format("2006-01-02 15:04"))
	}
	return sb.String()
}
