package models

import (
	"time"
)

// Metric categories. CategoryPriority breaks ties when consolidation's
// majority vote is split between categories.
const (
	CategoryBusiness    = "business"
	CategoryEngagement  = "engagement"
	CategoryContent     = "content"
	CategoryPerformance = "performance"
	CategoryGrowth      = "growth"
)

// CategoryPriority orders categories for tie-breaking; lower index wins.
var CategoryPriority = []string{
	CategoryBusiness,
	CategoryGrowth,
	CategoryEngagement,
	CategoryPerformance,
	CategoryContent,
}

// CategoryWeight feeds the consolidation ranking score.
var CategoryWeight = map[string]float64{
	CategoryBusiness:    1.5,
	CategoryGrowth:      1.4,
	CategoryEngagement:  1.2,
	CategoryPerformance: 1.1,
	CategoryContent:     1.0,
}

// Metric data types
const (
	DataTypeNumber     = "number"
	DataTypePercentage = "percentage"
	DataTypeBoolean    = "boolean"
	DataTypeString     = "string"
)

// IsValidCategory reports whether c is a known category
func IsValidCategory(c string) bool {
	_, ok := CategoryWeight[c]
	return ok
}

// MetricCandidate is an unconfirmed metric suggestion produced by one
// discovery batch. Candidates from different batches may describe the same
// underlying metric under different names; deduplication happens in
// consolidation, not here.
type MetricCandidate struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	DataType        string `json:"data_type"`
	SuggestedSource string `json:"suggested_source"`
	BatchIndex      int    `json:"batch_index"`
}

// ConsolidatedMetric is the deduplicated, ranked, final metric record for a
// job. Immutable once persisted.
type ConsolidatedMetric struct {
	ID               string    `json:"id" badgerhold:"key"`
	JobID            string    `json:"job_id" badgerhold:"index"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	DataType         string    `json:"data_type"`
	SuggestedSources []string  `json:"suggested_sources"`
	Mentions         int       `json:"mentions"`
	Score            float64   `json:"score"`
	DisplayOrder     int       `json:"display_order"`
	FallbackSourced  bool      `json:"fallback_sourced"`
	CreatedAt        time.Time `json:"created_at"`
}
