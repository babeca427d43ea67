package server

import (
	"net/http"
	"time"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Pipeline
	mux.HandleFunc("/api/pipeline/start", s.handlePipelineStart)
	mux.HandleFunc("/api/pipeline/resume", s.handlePipelineResume)
	mux.HandleFunc("/api/pipeline/jobs/", s.handlePipelineJob)
	mux.HandleFunc("/api/pipeline/jobs", s.handlePipelineJobs)
	mux.HandleFunc("/api/pipeline/batches", s.handlePipelineBatches)

	// Growth rankings
	mux.HandleFunc("/api/growth/ranking", s.handleGrowthRanking)

	// Symbol universe
	mux.HandleFunc("/api/symbols/sync", s.handleSymbolSync)
	mux.HandleFunc("/api/symbols", s.handleSymbols)

	// Pipeline event stream
	mux.HandleFunc("/api/events", s.app.Pipeline.Hub().ServeWS)
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
