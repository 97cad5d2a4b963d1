package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/models"
)

func testMetric(id, jobID string, order int) *models.ConsolidatedMetric {
	return &models.ConsolidatedMetric{
		ID:           id,
		JobID:        jobID,
		Name:         "Metric " + id,
		Description:  "d",
		Category:     models.CategoryPerformance,
		DataType:     models.DataTypeNumber,
		DisplayOrder: order,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestMetricStorage_SaveAndGetByJobInDisplayOrder(t *testing.T) {
	db := newTestDB(t)
	s := NewMetricStorage(db, common.GetLogger())
	ctx := context.Background()

	// Saved out of order; reads come back in display order
	require.NoError(t, s.SaveMetrics(ctx, []*models.ConsolidatedMetric{
		testMetric("met_b", "job_1", 1),
		testMetric("met_a", "job_1", 0),
		testMetric("met_x", "job_2", 0),
	}))

	metrics, err := s.GetMetricsByJob(ctx, "job_1")
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "met_a", metrics[0].ID)
	assert.Equal(t, "met_b", metrics[1].ID)
}

func TestMetricStorage_GetMetricsByJob_Empty(t *testing.T) {
	db := newTestDB(t)
	s := NewMetricStorage(db, common.GetLogger())

	metrics, err := s.GetMetricsByJob(context.Background(), "job_none")
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestMetricStorage_DeleteMetricsByJob(t *testing.T) {
	db := newTestDB(t)
	s := NewMetricStorage(db, common.GetLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveMetrics(ctx, []*models.ConsolidatedMetric{
		testMetric("met_a", "job_1", 0),
		testMetric("met_x", "job_2", 0),
	}))

	require.NoError(t, s.DeleteMetricsByJob(ctx, "job_1"))

	metrics, err := s.GetMetricsByJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Empty(t, metrics)

	kept, err := s.GetMetricsByJob(ctx, "job_2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
