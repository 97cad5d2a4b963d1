package models

import (
	"time"
)

// JobStatus represents the lifecycle state of an analysis job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusFetching  JobStatus = "fetching"
	JobStatusAnalyzing JobStatus = "analyzing"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Pipeline stages, used for UI granularity while a job is in flight.
const (
	StageScan        = 1 // Signal scan over the file tree
	StageSelect      = 2 // File selection and content fetch
	StageDiscover    = 3 // Overview pass + per-batch discovery passes
	StageConsolidate = 4 // Deduplication and ranking
	StageHandoff     = 5 // Result persistence
)

// ErrorKind classifies job-level failures
type ErrorKind string

const (
	ErrorKindSourceUnavailable ErrorKind = "source_unavailable"
	ErrorKindInternal          ErrorKind = "internal"
)

// JobLogEntry is a single entry in a job's append-only log.
// The Tag embeds stage/pass/batch context, e.g. "stage3b.batch4".
type JobLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Tag       string    `json:"tag"`
	Message   string    `json:"message"`
}

// Job represents one end-to-end analysis run for a repository URL.
// It is created on submission and mutated only by its orchestrator run.
type Job struct {
	ID              string        `json:"id" badgerhold:"key"`
	RepoURL         string        `json:"repo_url"`
	RepoOwner       string        `json:"repo_owner"`
	RepoName        string        `json:"repo_name"`
	Status          JobStatus     `json:"status"`
	CurrentStage    int           `json:"current_stage"`
	ProgressMessage string        `json:"progress_message"`
	Log             []JobLogEntry `json:"log"`
	ErrorKind       ErrorKind     `json:"error_kind,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	TotalFiles      int           `json:"total_files"`
	FetchedFiles    int           `json:"fetched_files"`
	ResultCount     int           `json:"result_count"`
	CreatedAt       time.Time     `json:"created_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// IsTerminal returns true once the job has reached a final state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// AdvanceStage moves the stage counter forward. The counter never regresses:
// calls with a lower stage than the current one are ignored.
func (j *Job) AdvanceStage(stage int) {
	if stage > j.CurrentStage {
		j.CurrentStage = stage
	}
}

// AppendLog appends an entry to the job's log. Entries are never reordered,
// mutated, or truncated once appended.
func (j *Job) AppendLog(level, tag, message string) {
	j.Log = append(j.Log, JobLogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Tag:       tag,
		Message:   message,
	})
}
