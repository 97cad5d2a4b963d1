package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
)

// ClaudeProvider implements interfaces.LLMProvider on the Anthropic API
type ClaudeProvider struct {
	config  *common.ClaudeConfig
	client  anthropic.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeProvider creates a Claude-backed provider
func NewClaudeProvider(cfg *common.ClaudeConfig, llmCfg *common.LLMConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude api_key is required")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &ClaudeProvider{
		config:  cfg,
		client:  client,
		timeout: common.ParseDurationOr(llmCfg.Timeout, 90*time.Second),
		logger:  logger,
	}, nil
}

func (p *ClaudeProvider) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	maxTokens := p.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.config.Temperature))
	}

	system := req.System
	if req.ForceJSON {
		// Claude has no response MIME type constraint; convey the shape
		// requirement through the system instruction instead
		if system != "" {
			system += "\n\n"
		}
		system += "Respond with valid JSON only, no markdown fences or prose."
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	start := time.Now()
	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("claude generate failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("claude returned an empty response")
	}

	p.logger.Debug().
		Str("model", p.config.Model).
		Int("prompt_length", len(req.Prompt)).
		Int("response_length", text.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude generation completed")

	return text.String(), nil
}

func (p *ClaudeProvider) ProviderType() string {
	return ProviderClaude
}

func (p *ClaudeProvider) Close() error {
	return nil
}

var _ interfaces.LLMProvider = (*ClaudeProvider)(nil)
