package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 100, EstimateTokens(strings.Repeat("x", 300)))
}

func TestBuildBatches_Empty(t *testing.T) {
	assert.Empty(t, BuildBatches(nil, 1000))
}

func TestBuildBatches_SingleBatchUnderCeiling(t *testing.T) {
	candidates := []FileCandidate{
		{Path: "a.go", EstimatedTokens: 100},
		{Path: "b.go", EstimatedTokens: 100},
	}

	batches := BuildBatches(candidates, 1000)
	require.Len(t, batches, 1)
	assert.Equal(t, 0, batches[0].Index)
	assert.Len(t, batches[0].Files, 2)
}

func TestBuildBatches_SplitsAtCeiling(t *testing.T) {
	candidates := []FileCandidate{
		{Path: "a.go", EstimatedTokens: 400},
		{Path: "b.go", EstimatedTokens: 400},
		{Path: "c.go", EstimatedTokens: 400},
	}

	// Each file costs 420 with overhead, so two fit under 1000
	batches := BuildBatches(candidates, 1000)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0].Files, 2)
	assert.Len(t, batches[1].Files, 1)
	assert.Equal(t, 1, batches[1].Index)
}

func TestBuildBatches_OversizedFileGetsOwnBatch(t *testing.T) {
	candidates := []FileCandidate{
		{Path: "small.go", EstimatedTokens: 100},
		{Path: "huge.go", EstimatedTokens: 5000},
		{Path: "tail.go", EstimatedTokens: 100},
	}

	batches := BuildBatches(candidates, 1000)
	require.Len(t, batches, 3)
	assert.Equal(t, "huge.go", batches[1].Files[0].Path)
	assert.Equal(t, "tail.go", batches[2].Files[0].Path)
}

func TestBuildBatches_PreservesSelectionOrder(t *testing.T) {
	candidates := []FileCandidate{
		{Path: "1.go", EstimatedTokens: 10},
		{Path: "2.go", EstimatedTokens: 10},
		{Path: "3.go", EstimatedTokens: 10},
	}

	batches := BuildBatches(candidates, 10_000)
	require.Len(t, batches, 1)
	paths := []string{}
	for _, f := range batches[0].Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"1.go", "2.go", "3.go"}, paths)
}
