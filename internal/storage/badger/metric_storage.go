package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// MetricStorage implements interfaces.MetricStorage on BadgerDB
type MetricStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMetricStorage creates a new MetricStorage instance
func NewMetricStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MetricStorage {
	return &MetricStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MetricStorage) SaveMetrics(ctx context.Context, metrics []*models.ConsolidatedMetric) error {
	for _, m := range metrics {
		if m.ID == "" {
			return fmt.Errorf("metric ID is required")
		}
		if err := s.db.Store().Upsert(m.ID, m); err != nil {
			return fmt.Errorf("failed to save metric %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *MetricStorage) GetMetricsByJob(ctx context.Context, jobID string) ([]*models.ConsolidatedMetric, error) {
	var metrics []models.ConsolidatedMetric
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").SortBy("DisplayOrder")
	if err := s.db.Store().Find(&metrics, query); err != nil {
		return nil, fmt.Errorf("failed to get metrics for job %s: %w", jobID, err)
	}

	result := make([]*models.ConsolidatedMetric, len(metrics))
	for i := range metrics {
		result[i] = &metrics[i]
	}
	return result, nil
}

func (s *MetricStorage) DeleteMetricsByJob(ctx context.Context, jobID string) error {
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID")
	if err := s.db.Store().DeleteMatching(&models.ConsolidatedMetric{}, query); err != nil {
		return fmt.Errorf("failed to delete metrics for job %s: %w", jobID, err)
	}
	return nil
}
