package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/metior/internal/models"
)

// JobStorage persists job records. A job record is written whole by its
// single orchestrator writer; concurrent readers see consistent snapshots.
type JobStorage interface {
	// SaveJob upserts the full job record, including its log sequence
	SaveJob(ctx context.Context, job *models.Job) error

	// GetJob returns the job by ID, or an error if not found
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// ListJobs returns jobs ordered by creation time descending
	ListJobs(ctx context.Context, limit int) ([]*models.Job, error)

	// DeleteJob removes the job record and its URL index entry
	DeleteJob(ctx context.Context, jobID string) error

	// GetJobIDByURL resolves the active job for a repository URL, returning
	// an empty string when none is on record
	GetJobIDByURL(ctx context.Context, repoURL string) (string, error)

	// SetJobIDForURL repoints the URL index at a job
	SetJobIDForURL(ctx context.Context, repoURL, jobID string) error

	// DeleteTerminalBefore removes completed/failed jobs created before
	// cutoff, returning how many were deleted
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MetricStorage persists the consolidated results of completed jobs
type MetricStorage interface {
	SaveMetrics(ctx context.Context, metrics []*models.ConsolidatedMetric) error
	GetMetricsByJob(ctx context.Context, jobID string) ([]*models.ConsolidatedMetric, error)
	DeleteMetricsByJob(ctx context.Context, jobID string) error
}

// StorageManager provides access to all storage services
type StorageManager interface {
	JobStorage() JobStorage
	MetricStorage() MetricStorage
	Close() error
}
