package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" validate:"oneof=development production"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	GitHub      GitHubConfig    `toml:"github"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	Retention   RetentionConfig `toml:"retention"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// GitHubConfig configures the repository content provider
type GitHubConfig struct {
	Token             string  `toml:"token"`               // Default token; per-request tokens override
	RequestsPerSecond float64 `toml:"requests_per_second"` // Client-side rate limit for content fetches
	FetchTimeout      string  `toml:"fetch_timeout"`       // Per-request timeout, e.g. "30s"
}

// LLMConfig selects the provider and shared call behavior
type LLMConfig struct {
	Provider     string `toml:"provider" validate:"oneof=gemini claude"`
	Timeout      string `toml:"timeout"`        // Per-call timeout, e.g. "90s"
	MaxRetries   int    `toml:"max_retries"`    // Retries for transient provider failures
	RetryBackoff string `toml:"retry_backoff"`  // Initial backoff, e.g. "2s"
	MaxBackoff   string `toml:"max_backoff"`    // Backoff cap, e.g. "60s"
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// AnalysisConfig tunes the analysis pipeline
type AnalysisConfig struct {
	MaxFileSize          int `toml:"max_file_size"`          // Skip repository files larger than this (bytes)
	MaxFilesToFetch      int `toml:"max_files_to_fetch"`     // Hard cap on files fetched per job
	SelectionTokenBudget int `toml:"selection_token_budget"` // Total estimated tokens across selected files
	BatchTokenCeiling    int `toml:"batch_token_ceiling"`    // Estimated tokens per discovery batch
	OverviewFileLimit    int `toml:"overview_file_limit"`    // Key files sent to the overview pass
	FetchConcurrency     int `toml:"fetch_concurrency"`      // In-flight content fetches
	DiscoveryConcurrency int `toml:"discovery_concurrency"`  // In-flight discovery batches
	MaxMetrics           int `toml:"max_metrics"`            // Truncation bound on the consolidated list
	FallbackFloor        int `toml:"fallback_floor" validate:"gt=0"` // Guaranteed minimum metric count
}

// RetentionConfig controls the terminal-job sweep
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule
	MaxAge   string `toml:"max_age"`  // Delete terminal jobs older than this, e.g. "168h"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/metior",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		GitHub: GitHubConfig{
			RequestsPerSecond: 10,
			FetchTimeout:      "30s",
		},
		LLM: LLMConfig{
			Provider:     "gemini",
			Timeout:      "90s",
			MaxRetries:   3,
			RetryBackoff: "2s",
			MaxBackoff:   "60s",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.1,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Temperature: 0.1,
		},
		Analysis: AnalysisConfig{
			MaxFileSize:          100_000,
			MaxFilesToFetch:      200,
			SelectionTokenBudget: 120_000,
			BatchTokenCeiling:    10_000,
			OverviewFileLimit:    10,
			FetchConcurrency:     8,
			DiscoveryConcurrency: 3,
			MaxMetrics:           25,
			FallbackFloor:        5,
		},
		Retention: RetentionConfig{
			Enabled:  false,
			Schedule: "0 * * * *",
			MaxAge:   "168h",
		},
	}
}

// LoadFromFiles loads configuration from defaults, then each file in order
// (later files override earlier ones), then environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a single file
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("METIOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("METIOR_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("METIOR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("METIOR_DATA_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("METIOR_GITHUB_TOKEN"); v != "" {
		config.GitHub.Token = v
	}
	if v := os.Getenv("METIOR_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration against struct tags and duration fields
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, val := range map[string]string{
		"github.fetch_timeout": c.GitHub.FetchTimeout,
		"llm.timeout":          c.LLM.Timeout,
		"llm.retry_backoff":    c.LLM.RetryBackoff,
		"llm.max_backoff":      c.LLM.MaxBackoff,
		"retention.max_age":    c.Retention.MaxAge,
	} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	return nil
}

// ParseDurationOr parses a duration string, falling back to def on error or empty input
func ParseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
