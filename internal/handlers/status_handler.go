package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
)

// StatusHandler reports service status
type StatusHandler struct {
	config    *common.Config
	provider  interfaces.LLMProvider
	startTime time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(config *common.Config, provider interfaces.LLMProvider, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:    config,
		provider:  provider,
		startTime: time.Now(),
		logger:    logger,
	}
}

// GetStatusHandler returns service status and configuration summary
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "running",
		"version":      common.GetVersion(),
		"build":        common.GetFullVersion(),
		"uptime":       time.Since(h.startTime).Round(time.Second).String(),
		"llm_provider": h.provider.ProviderType(),
		"environment":  h.config.Environment,
	})
}

// HealthHandler is a minimal liveness probe
// GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler returns version details
// GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}
