package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
)

// Service runs the retention sweep on a cron schedule, removing terminal
// jobs older than the configured age along with their metrics.
type Service struct {
	config      *common.RetentionConfig
	jobStorage  interfaces.JobStorage
	metricStore interfaces.MetricStorage
	cron        *cron.Cron
	logger      arbor.ILogger
	mu          sync.Mutex
	running     bool
}

// NewService creates the retention scheduler
func NewService(config *common.RetentionConfig, jobStorage interfaces.JobStorage, metricStore interfaces.MetricStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:      config,
		jobStorage:  jobStorage,
		metricStore: metricStore,
		cron:        cron.New(),
		logger:      logger,
	}
}

// Start registers the sweep and begins the cron loop. A disabled retention
// config makes Start a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Retention sweep disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 * * * *" // Default: hourly
	}

	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return fmt.Errorf("failed to register retention sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().
		Str("schedule", schedule).
		Str("max_age", s.config.MaxAge).
		Msg("Retention sweep scheduled")
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Retention scheduler stopped")
}

// runSweep deletes terminal jobs past the retention age, removing each
// job's metrics before the job record itself.
func (s *Service) runSweep() {
	maxAge := common.ParseDurationOr(s.config.MaxAge, 168*time.Hour)
	cutoff := time.Now().UTC().Add(-maxAge)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobs, err := s.jobStorage.ListJobs(ctx, 0)
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed to list jobs")
		return
	}
	for _, job := range jobs {
		if !job.IsTerminal() || !job.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.metricStore.DeleteMetricsByJob(ctx, job.ID); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Retention sweep failed to delete metrics")
			continue
		}
	}

	deleted, err := s.jobStorage.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("Retention sweep removed expired jobs")
	}
}
