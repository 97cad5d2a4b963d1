package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/metior/internal/common"
)

// RetryConfig defines retry behavior for transient provider failures
// (timeouts, rate limits, malformed output).
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// NewRetryConfig builds a RetryConfig from the LLM configuration
func NewRetryConfig(cfg *common.LLMConfig) *RetryConfig {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &RetryConfig{
		MaxRetries:        retries,
		InitialBackoff:    common.ParseDurationOr(cfg.RetryBackoff, 2*time.Second),
		MaxBackoff:        common.ParseDurationOr(cfg.MaxBackoff, 60*time.Second),
		BackoffMultiplier: 2.0,
	}
}

// IsRateLimitError checks if an error indicates provider rate limiting
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(errStr), "rate limit") ||
		strings.Contains(strings.ToLower(errStr), "quota")
}

// IsTransientError reports whether a provider error is worth retrying.
// Rate limits, timeouts, and server-side errors qualify; context
// cancellation from the caller does not.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrMalformedResponse) || IsRateLimitError(err) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
// in provider rate-limit messages
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses an API-suggested retry delay from a provider
// error. Returns 0 if no delay is found.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff computes the backoff duration for a given attempt.
// An API-provided delay (from ExtractRetryDelay) overrides the configured
// initial backoff as the base. The result is capped at MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// Sleep waits for the computed backoff or until the context is done
func (c *RetryConfig) Sleep(ctx context.Context, attempt int, err error) error {
	backoff := c.CalculateBackoff(attempt, ExtractRetryDelay(err))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}
