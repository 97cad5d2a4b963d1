package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// urlIndexPrefix namespaces the raw key-value index mapping a repository URL
// to its active job ID. Kept outside badgerhold so repointing the index on a
// forced re-analyze is a single key write.
const urlIndexPrefix = "urlidx:"

// JobStorage implements interfaces.JobStorage on BadgerDB
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// SaveJob upserts the full job record. The record (including the log
// sequence) is written atomically, so readers never observe a partially
// appended log.
func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s", jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	// Drop the URL index entry only if it still points at this job
	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		key := []byte(urlIndexPrefix + job.RepoURL)
		item, err := txn.Get(key)
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var current string
		if err := item.Value(func(val []byte) error {
			current = string(val)
			return nil
		}); err != nil {
			return err
		}
		if current == jobID {
			return txn.Delete(key)
		}
		return nil
	})
}

func (s *JobStorage) GetJobIDByURL(ctx context.Context, repoURL string) (string, error) {
	var jobID string
	err := s.db.Store().Badger().View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(urlIndexPrefix + repoURL))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			jobID = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to read url index: %w", err)
	}
	return jobID, nil
}

func (s *JobStorage) SetJobIDForURL(ctx context.Context, repoURL, jobID string) error {
	err := s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(urlIndexPrefix+repoURL), []byte(jobID))
	})
	if err != nil {
		return fmt.Errorf("failed to write url index: %w", err)
	}
	return nil
}

// DeleteTerminalBefore removes completed/failed jobs created before cutoff
func (s *JobStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var jobs []models.Job
	query := badgerhold.Where("CreatedAt").Lt(cutoff)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to query stale jobs: %w", err)
	}

	deleted := 0
	for i := range jobs {
		if !jobs[i].IsTerminal() {
			continue
		}
		if err := s.DeleteJob(ctx, jobs[i].ID); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to delete stale job")
			continue
		}
		deleted++
	}
	return deleted, nil
}
