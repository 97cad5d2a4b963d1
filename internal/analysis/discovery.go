package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/models"
	"github.com/ternarybob/metior/internal/services/llm"
)

// discoveryResponse is the JSON shape expected from a discovery pass
type discoveryResponse struct {
	Metrics []models.MetricCandidate `json:"metrics"`
}

func buildDiscoveryPrompt(overview *models.ProjectOverview, batch Batch) string {
	context := "(no project overview available)"
	if overview != nil {
		if b, err := json.MarshalIndent(overview, "", "  "); err == nil {
			context = string(b)
		}
	}

	return fmt.Sprintf(`You are an expert software analyst specializing in identifying trackable business and technical metrics for software projects.

PROJECT CONTEXT:
%s

CODEBASE FILES:
%s

Based on your analysis of this codebase, identify all meaningful metrics that could be tracked for this project. Consider:

1. Business/Domain Metrics: metrics specific to what this application does
2. User Engagement Metrics: how users interact with the application
3. Content Metrics: what content the application manages
4. Technical/Performance Metrics: code quality and system health indicators
5. Growth Metrics: indicators of project/user growth

For each metric, provide:
- A clear, concise name
- A description of what it measures and why it matters
- A category (one of: business, engagement, content, performance, growth)
- The data type (number, percentage, boolean, string)
- A suggested source: where in the codebase or infrastructure this metric could be measured (reference specific files, database tables, or API endpoints you found in the code)

Respond in the following JSON format exactly:
{
  "metrics": [
    {
      "name": "string",
      "description": "string",
      "category": "business|engagement|content|performance|growth",
      "data_type": "number|percentage|boolean|string",
      "suggested_source": "string describing where to measure this"
    }
  ]
}

Return between 5 and 25 metrics, ordered by importance. Focus on metrics that are specific and actionable for THIS particular project, not generic software metrics.`, context, formatFilesForPrompt(batch.Files))
}

// parseCandidates decodes a discovery response and drops candidates missing
// required fields. Unknown categories and data types are normalized rather
// than dropped.
func parseCandidates(raw string, batchIndex int, logf func(level, format string, args ...any)) ([]models.MetricCandidate, error) {
	var resp discoveryResponse
	if err := llm.DecodeLenient(raw, &resp); err != nil {
		return nil, err
	}

	var valid []models.MetricCandidate
	for _, c := range resp.Metrics {
		if c.Name == "" || c.Description == "" {
			logf("warn", "batch %d: dropping candidate with missing required fields (name=%q)", batchIndex, c.Name)
			continue
		}
		if !models.IsValidCategory(c.Category) {
			c.Category = models.CategoryPerformance
		}
		switch c.DataType {
		case models.DataTypeNumber, models.DataTypePercentage, models.DataTypeBoolean, models.DataTypeString:
		default:
			c.DataType = models.DataTypeNumber
		}
		c.BatchIndex = batchIndex
		valid = append(valid, c)
	}
	return valid, nil
}

// runDiscoveryBatch drives one batch through the provider with the full
// recovery procedure: lenient parsing, then retries with backoff for
// transient failures. An exhausted batch degrades to zero candidates and
// never fails the job.
func runDiscoveryBatch(
	ctx context.Context,
	provider interfaces.LLMProvider,
	retry *llm.RetryConfig,
	overview *models.ProjectOverview,
	batch Batch,
	logf func(level, format string, args ...any),
) []models.MetricCandidate {
	req := &interfaces.GenerateRequest{
		Prompt:    buildDiscoveryPrompt(overview, batch),
		ForceJSON: true,
	}

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		raw, err := provider.Generate(ctx, req)
		if err == nil {
			candidates, parseErr := parseCandidates(raw, batch.Index, logf)
			if parseErr == nil {
				logf("info", "batch %d yielded %d candidates", batch.Index, len(candidates))
				return candidates
			}
			err = parseErr
		}

		if attempt < retry.MaxRetries && llm.IsTransientError(err) {
			logf("warn", "batch %d attempt %d failed, retrying: %v", batch.Index, attempt+1, err)
			if retry.Sleep(ctx, attempt, err) != nil {
				break
			}
			continue
		}

		logf("warn", "batch %d degraded to zero candidates: %v", batch.Index, err)
		break
	}

	return nil
}

// runDiscovery fans batches out with bounded concurrency and returns all
// candidates concatenated in batch-index order, so consolidation input is
// deterministic regardless of completion order.
func runDiscovery(
	ctx context.Context,
	provider interfaces.LLMProvider,
	retry *llm.RetryConfig,
	overview *models.ProjectOverview,
	batches []Batch,
	concurrency int,
	batchLogf func(batchIndex int) func(level, format string, args ...any),
) []models.MetricCandidate {
	if concurrency <= 0 {
		concurrency = 1
	}

	perBatch := make([][]models.MetricCandidate, len(batches))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch Batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			perBatch[i] = runDiscoveryBatch(ctx, provider, retry, overview, batch, batchLogf(batch.Index))
		}(i, batch)
	}
	wg.Wait()

	var all []models.MetricCandidate
	for _, candidates := range perBatch {
		all = append(all, candidates...)
	}
	return all
}
