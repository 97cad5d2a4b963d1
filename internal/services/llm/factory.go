package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
)

// Provider type identifiers
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// NewProvider creates the configured LLM provider. The rest of the system
// depends only on interfaces.LLMProvider; provider identity appears nowhere
// outside configuration and logs.
func NewProvider(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMProvider, error) {
	logger.Info().Str("provider", cfg.LLM.Provider).Msg("Initializing LLM provider")

	switch cfg.LLM.Provider {
	case ProviderGemini:
		return NewGeminiProvider(&cfg.Gemini, &cfg.LLM, logger)
	case ProviderClaude:
		return NewClaudeProvider(&cfg.Claude, &cfg.LLM, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
