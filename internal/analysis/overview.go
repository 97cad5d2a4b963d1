package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/models"
	"github.com/ternarybob/metior/internal/services/llm"
)

// formatFilesForPrompt renders candidates as path-headed sections
func formatFilesForPrompt(files []FileCandidate) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", f.Path, f.Content)
	}
	return b.String()
}

func buildOverviewPrompt(tree []string, keyFiles []FileCandidate) string {
	return fmt.Sprintf(`You are an expert software analyst. You are given the contents of a software repository. Your job is to understand what this project does, its technology stack, its domain, and its architecture.

Here is the repository file tree:
%s

Here are the key files:
%s

Respond in the following JSON format exactly:
{
  "project_name": "string",
  "description": "A 2-3 sentence summary of what this project does",
  "domain": "string (e.g., e-commerce, social media, SaaS, developer tool, etc.)",
  "tech_stack": ["list", "of", "technologies"],
  "architecture_type": "string (e.g., monolith, microservices, serverless, SPA+API, etc.)",
  "key_entities": ["list of core domain entities (e.g., User, Product, Order, etc.)"]
}`, strings.Join(tree, "\n"), formatFilesForPrompt(keyFiles))
}

// runOverviewPass produces a structured project overview from the
// highest-priority candidates. Failure is not fatal: the pass logs and
// returns nil, and later passes run without the enrichment.
func runOverviewPass(
	ctx context.Context,
	provider interfaces.LLMProvider,
	retry *llm.RetryConfig,
	tree []string,
	keyFiles []FileCandidate,
	logf func(level, format string, args ...any),
) *models.ProjectOverview {
	prompt := buildOverviewPrompt(tree, keyFiles)
	req := &interfaces.GenerateRequest{Prompt: prompt, ForceJSON: true}

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		raw, err := provider.Generate(ctx, req)
		if err == nil {
			var overview models.ProjectOverview
			if parseErr := llm.DecodeLenient(raw, &overview); parseErr == nil {
				logf("info", "overview ready: domain=%q stack=%v", overview.Domain, overview.TechStack)
				return &overview
			} else {
				err = parseErr
			}
		}

		if attempt < retry.MaxRetries && llm.IsTransientError(err) {
			logf("warn", "overview attempt %d failed, retrying: %v", attempt+1, err)
			if retry.Sleep(ctx, attempt, err) != nil {
				break
			}
			continue
		}

		logf("warn", "overview pass failed, continuing without it: %v", err)
		break
	}

	return nil
}
