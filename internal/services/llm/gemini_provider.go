package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiProvider implements interfaces.LLMProvider on the Gemini API
type GeminiProvider struct {
	config  *common.GeminiConfig
	client  *genai.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiProvider creates a Gemini-backed provider
func NewGeminiProvider(cfg *common.GeminiConfig, llmCfg *common.LLMConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		config:  cfg,
		client:  client,
		timeout: common.ParseDurationOr(llmCfg.Timeout, 90*time.Second),
		logger:  logger,
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.config.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.ForceJSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(req.Prompt)},
		},
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(timeoutCtx, p.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	p.logger.Debug().
		Str("model", p.config.Model).
		Int("prompt_length", len(req.Prompt)).
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Gemini generation completed")

	return text, nil
}

func (p *GeminiProvider) ProviderType() string {
	return ProviderGemini
}

// Close releases the client reference. The genai client holds no resources
// that require explicit cleanup.
func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}

var _ interfaces.LLMProvider = (*GeminiProvider)(nil)
