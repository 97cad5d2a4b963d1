package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local-first service, same-host UI
	},
}

// WSMessage is the envelope for all messages pushed to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// JobProgressPayload mirrors the job fields a progress view needs
type JobProgressPayload struct {
	JobID           string           `json:"job_id"`
	Status          models.JobStatus `json:"status"`
	CurrentStage    int              `json:"current_stage"`
	ProgressMessage string           `json:"progress_message"`
	FetchedFiles    int              `json:"fetched_files"`
	TotalFiles      int              `json:"total_files"`
	ResultCount     int              `json:"result_count"`
}

// WebSocketHandler streams a job's log and progress to a client while the
// job runs. The handler polls storage rather than holding a reference to the
// run, so a client can attach to any job at any time.
type WebSocketHandler struct {
	jobStorage   interfaces.JobStorage
	pollInterval time.Duration
	logger       arbor.ILogger
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(jobStorage interfaces.JobStorage, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		jobStorage:   jobStorage,
		pollInterval: 500 * time.Millisecond,
		logger:       logger,
	}
}

// HandleWebSocket upgrades the connection and streams log entries for the
// job named by the job_id query parameter until the job reaches a terminal
// state or the client disconnects.
// GET /ws?job_id={id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		http.Error(w, "job_id query parameter is required", http.StatusBadRequest)
		return
	}

	if _, err := h.jobStorage.GetJob(r.Context(), jobID); err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Debug().Str("job_id", jobID).Msg("WebSocket client attached")

	// Reader goroutine: we never expect client messages, but reading is
	// required to detect disconnects and process control frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		job, err := h.jobStorage.GetJob(r.Context(), jobID)
		if err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Job disappeared during streaming")
			return
		}

		// Log entries are append-only, so everything past the cursor is new
		for ; sent < len(job.Log); sent++ {
			msg := WSMessage{Type: "log", Payload: job.Log[sent]}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}

		progress := WSMessage{Type: "progress", Payload: JobProgressPayload{
			JobID:           job.ID,
			Status:          job.Status,
			CurrentStage:    job.CurrentStage,
			ProgressMessage: job.ProgressMessage,
			FetchedFiles:    job.FetchedFiles,
			TotalFiles:      job.TotalFiles,
			ResultCount:     job.ResultCount,
		}}
		if err := conn.WriteJSON(progress); err != nil {
			return
		}

		if job.IsTerminal() {
			final := WSMessage{Type: "done", Payload: map[string]interface{}{
				"job_id": job.ID,
				"status": job.Status,
			}}
			conn.WriteJSON(final)
			return
		}
	}
}
