package analysis

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ternarybob/metior/internal/models"
)

// SimilarityFunc decides whether two raw metric names describe the same
// underlying metric. Swappable so duplicate detection is unit-testable in
// isolation from the rest of consolidation.
type SimilarityFunc func(a, b string) bool

// NormalizeMetricName lowercases, strips punctuation and unit suffixes, and
// collapses whitespace, so "Error Rate" and "error_rate (%)" normalize
// identically.
func NormalizeMetricName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DefaultSimilarity matches on normalized equality, then a bounded edit
// distance, then word-token overlap for longer names.
func DefaultSimilarity(a, b string) bool {
	na := NormalizeMetricName(a)
	nb := NormalizeMetricName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}

	shorter := len(na)
	if len(nb) < shorter {
		shorter = len(nb)
	}
	maxDist := shorter / 4
	if maxDist < 1 {
		maxDist = 1
	}
	if levenshtein.ComputeDistance(na, nb) <= maxDist {
		return true
	}

	return tokenOverlap(na, nb) >= 0.75
}

// tokenOverlap computes Jaccard overlap of the word sets
func tokenOverlap(na, nb string) float64 {
	as := strings.Fields(na)
	bs := strings.Fields(nb)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	set := make(map[string]bool, len(as))
	for _, w := range as {
		set[w] = true
	}
	shared := 0
	union := len(set)
	for _, w := range bs {
		if set[w] {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

// metricGroup accumulates candidates judged to describe one metric
type metricGroup struct {
	candidates []models.MetricCandidate
	firstIndex int
}

// Consolidate deduplicates and ranks candidates from all batches into the
// final metric list. Pure and deterministic: the same candidate set always
// yields the same output, in order and content. The caller assigns IDs and
// timestamps.
func Consolidate(candidates []models.MetricCandidate, maxOut int, sim SimilarityFunc) []*models.ConsolidatedMetric {
	if sim == nil {
		sim = DefaultSimilarity
	}

	// Group in discovery order; each candidate joins the first group whose
	// representative name it matches
	var groups []*metricGroup
	for i, c := range candidates {
		placed := false
		for _, g := range groups {
			if sim(g.candidates[0].Name, c.Name) {
				g.candidates = append(g.candidates, c)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &metricGroup{
				candidates: []models.MetricCandidate{c},
				firstIndex: i,
			})
		}
	}

	merged := make([]*models.ConsolidatedMetric, 0, len(groups))
	for _, g := range groups {
		merged = append(merged, mergeGroup(g))
	}

	// Rank by score descending; ties keep original discovery order (the
	// slice is already in discovery order, and the sort is stable)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if maxOut > 0 && len(merged) > maxOut {
		merged = merged[:maxOut]
	}

	for i, m := range merged {
		m.DisplayOrder = i
	}
	return merged
}

// mergeGroup collapses one duplicate group: the most frequent name, the
// longest description, majority-vote category, and the union of suggested
// sources.
func mergeGroup(g *metricGroup) *models.ConsolidatedMetric {
	name := majorityString(g.candidates, func(c models.MetricCandidate) string { return c.Name })
	category := majorityCategory(g.candidates)
	dataType := majorityString(g.candidates, func(c models.MetricCandidate) string { return c.DataType })

	description := ""
	for _, c := range g.candidates {
		if len(c.Description) > len(description) {
			description = c.Description
		}
	}

	var sources []string
	seenSources := make(map[string]bool)
	batches := make(map[int]bool)
	for _, c := range g.candidates {
		if c.SuggestedSource != "" && !seenSources[c.SuggestedSource] {
			seenSources[c.SuggestedSource] = true
			sources = append(sources, c.SuggestedSource)
		}
		batches[c.BatchIndex] = true
	}

	return &models.ConsolidatedMetric{
		Name:             name,
		Description:      description,
		Category:         category,
		DataType:         dataType,
		SuggestedSources: sources,
		Mentions:         len(g.candidates),
		Score:            float64(len(batches)) * models.CategoryWeight[category],
	}
}

// majorityString returns the most frequent value of field across the
// group; ties resolve to the earliest-seen value
func majorityString(candidates []models.MetricCandidate, field func(models.MetricCandidate) string) string {
	counts := make(map[string]int)
	var order []string
	for _, c := range candidates {
		v := field(c)
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best := order[0]
	for _, v := range order {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

// majorityCategory votes on the group's category; ties are broken by the
// fixed category priority order
func majorityCategory(candidates []models.MetricCandidate) string {
	counts := make(map[string]int)
	for _, c := range candidates {
		counts[c.Category]++
	}

	best := ""
	bestCount := -1
	for _, cat := range models.CategoryPriority {
		if counts[cat] > bestCount {
			best = cat
			bestCount = counts[cat]
		}
	}
	return best
}
