package interfaces

import (
	"context"
)

// GenerateRequest is a provider-agnostic content generation request
type GenerateRequest struct {
	// Prompt is the user-role text sent to the model
	Prompt string

	// System is an optional system instruction
	System string

	// ForceJSON asks the provider for a JSON-shaped response where the
	// provider supports response MIME type constraints; otherwise it is
	// conveyed through the prompt alone
	ForceJSON bool
}

// LLMProvider is the capability interface the pipeline depends on: send a
// text prompt, receive raw text. Timeouts and cancellation travel through
// the context; provider identity only matters for logging.
type LLMProvider interface {
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
	ProviderType() string
	Close() error
}
