package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route for live job progress
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Analysis
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.SubmitHandler) // POST - submit repository
	mux.HandleFunc("/api/jobs", s.app.AnalysisHandler.ListJobsHandler)  // GET - list recent jobs
	mux.HandleFunc("/api/jobs/", s.app.AnalysisHandler.JobRoutesHandler) // GET/DELETE /{id}, GET /{id}/metrics, /{id}/logs

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return mux
}
