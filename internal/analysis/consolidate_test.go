package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/metior/internal/models"
)

func TestNormalizeMetricName(t *testing.T) {
	assert.Equal(t, "error rate", NormalizeMetricName("Error Rate"))
	assert.Equal(t, "error rate", NormalizeMetricName("error_rate (%)"))
	assert.Equal(t, "p95 latency", NormalizeMetricName("  P95-Latency  "))
	assert.Equal(t, "", NormalizeMetricName("!!!"))
}

func TestDefaultSimilarity(t *testing.T) {
	assert.True(t, DefaultSimilarity("Error Rate", "error_rate"))
	assert.True(t, DefaultSimilarity("Cache Hit Ratio", "Cache Hit Ratio (%)"))
	assert.True(t, DefaultSimilarity("daily active users", "daily active user"))
	assert.False(t, DefaultSimilarity("Error Rate", "Churn Rate"))
	assert.False(t, DefaultSimilarity("", "anything"))
}

func TestConsolidate_MergesDuplicatesAcrossBatches(t *testing.T) {
	candidates := []models.MetricCandidate{
		{Name: "Error Rate", Description: "short", Category: models.CategoryPerformance, DataType: models.DataTypePercentage, SuggestedSource: "logs", BatchIndex: 0},
		{Name: "error_rate", Description: "a much longer description of the error rate", Category: models.CategoryPerformance, DataType: models.DataTypePercentage, SuggestedSource: "metrics endpoint", BatchIndex: 1},
		{Name: "Signup Conversion", Description: "conversions", Category: models.CategoryGrowth, DataType: models.DataTypePercentage, SuggestedSource: "analytics", BatchIndex: 0},
	}

	merged := Consolidate(candidates, 25, nil)
	require.Len(t, merged, 2)

	var errorRate *models.ConsolidatedMetric
	for _, m := range merged {
		if NormalizeMetricName(m.Name) == "error rate" {
			errorRate = m
		}
	}
	require.NotNil(t, errorRate)
	assert.Equal(t, 2, errorRate.Mentions)
	assert.Equal(t, "a much longer description of the error rate", errorRate.Description)
	assert.ElementsMatch(t, []string{"logs", "metrics endpoint"}, errorRate.SuggestedSources)
	// Two distinct batches times the performance weight
	assert.InDelta(t, 2*models.CategoryWeight[models.CategoryPerformance], errorRate.Score, 1e-9)
}

func TestConsolidate_MajorityVoteOnCategory(t *testing.T) {
	candidates := []models.MetricCandidate{
		{Name: "Checkout Rate", Description: "d", Category: models.CategoryBusiness, DataType: models.DataTypePercentage, BatchIndex: 0},
		{Name: "checkout rate", Description: "d", Category: models.CategoryBusiness, DataType: models.DataTypePercentage, BatchIndex: 1},
		{Name: "Checkout  Rate", Description: "d", Category: models.CategoryEngagement, DataType: models.DataTypePercentage, BatchIndex: 2},
	}

	merged := Consolidate(candidates, 25, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, models.CategoryBusiness, merged[0].Category)
	assert.Equal(t, 3, merged[0].Mentions)
}

func TestConsolidate_CategoryTieBreaksByPriority(t *testing.T) {
	candidates := []models.MetricCandidate{
		{Name: "Activation Rate", Description: "d", Category: models.CategoryContent, DataType: models.DataTypePercentage, BatchIndex: 0},
		{Name: "activation rate", Description: "d", Category: models.CategoryGrowth, DataType: models.DataTypePercentage, BatchIndex: 1},
	}

	merged := Consolidate(candidates, 25, nil)
	require.Len(t, merged, 1)
	// One vote each; growth outranks content in the fixed priority order
	assert.Equal(t, models.CategoryGrowth, merged[0].Category)
}

func TestConsolidate_RanksByScoreAndAssignsDisplayOrder(t *testing.T) {
	candidates := []models.MetricCandidate{
		{Name: "Page Views", Description: "d", Category: models.CategoryContent, DataType: models.DataTypeNumber, BatchIndex: 0},
		{Name: "Revenue", Description: "d", Category: models.CategoryBusiness, DataType: models.DataTypeNumber, BatchIndex: 0},
		{Name: "Revenue", Description: "d", Category: models.CategoryBusiness, DataType: models.DataTypeNumber, BatchIndex: 1},
	}

	merged := Consolidate(candidates, 25, nil)
	require.Len(t, merged, 2)
	assert.Equal(t, "Revenue", merged[0].Name)
	assert.Equal(t, 0, merged[0].DisplayOrder)
	assert.Equal(t, "Page Views", merged[1].Name)
	assert.Equal(t, 1, merged[1].DisplayOrder)
}

func TestConsolidate_TruncatesToMaxOut(t *testing.T) {
	var candidates []models.MetricCandidate
	names := []string{"Alpha Count", "Beta Volume", "Gamma Total", "Delta Sessions"}
	for i, n := range names {
		candidates = append(candidates, models.MetricCandidate{
			Name: n, Description: "d", Category: models.CategoryContent,
			DataType: models.DataTypeNumber, BatchIndex: i,
		})
	}

	merged := Consolidate(candidates, 2, nil)
	assert.Len(t, merged, 2)
}

func TestConsolidate_Deterministic(t *testing.T) {
	candidates := []models.MetricCandidate{
		{Name: "Error Rate", Description: "a", Category: models.CategoryPerformance, DataType: models.DataTypePercentage, BatchIndex: 0},
		{Name: "Active Users", Description: "b", Category: models.CategoryGrowth, DataType: models.DataTypeNumber, BatchIndex: 0},
		{Name: "error rates", Description: "c", Category: models.CategoryPerformance, DataType: models.DataTypePercentage, BatchIndex: 1},
	}

	first := Consolidate(candidates, 25, nil)
	second := Consolidate(candidates, 25, nil)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestConsolidate_EmptyInput(t *testing.T) {
	assert.Empty(t, Consolidate(nil, 25, nil))
}
