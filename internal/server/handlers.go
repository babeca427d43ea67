package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/models"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// handlePipelineStart handles POST /api/pipeline/start. Starting while a job
// is already processing returns the active job rather than an error.
func (s *Server) handlePipelineStart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	job, err := s.app.Pipeline.Start(r.Context())
	if err != nil {
		if strings.Contains(err.Error(), "universe is empty") {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to start pipeline: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// handlePipelineResume handles POST /api/pipeline/resume.
func (s *Server) handlePipelineResume(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	job, err := s.app.Pipeline.Resume(r.Context())
	if err != nil {
		if strings.Contains(err.Error(), "no interrupted job") || strings.Contains(err.Error(), "already running") {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to resume pipeline: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// handlePipelineJob handles GET /api/pipeline/jobs/{id}.
func (s *Server) handlePipelineJob(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathParam(r, "/api/pipeline/jobs/", "")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := s.app.Pipeline.Status(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to get job: "+err.Error())
		return
	}
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// handlePipelineJobs handles GET /api/pipeline/jobs?limit=.
func (s *Server) handlePipelineJobs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := QueryInt(r, "limit", 20)
	jobs, err := s.app.Storage.JobStore().ListJobs(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs: "+err.Error())
		return
	}
	if jobs == nil {
		jobs = []*models.ProcessingJob{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// handlePipelineBatches handles GET /api/pipeline/batches?job=.
func (s *Server) handlePipelineBatches(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := r.URL.Query().Get("job")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Query parameter 'job' is required")
		return
	}

	batches, err := s.app.Storage.JobStore().ListBatches(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list batches: "+err.Error())
		return
	}
	if batches == nil {
		batches = []*models.Batch{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"job_id": jobID, "batches": batches})
}

// handleGrowthRanking handles GET /api/growth/ranking.
// Query parameters: market, sort_by, sort_order, skip, limit.
func (s *Server) handleGrowthRanking(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := models.RankingQuery{
		MarketCode: r.URL.Query().Get("market"),
		SortBy:     r.URL.Query().Get("sort_by"),
		SortOrder:  r.URL.Query().Get("sort_order"),
		Skip:       QueryInt(r, "skip", 0),
		Limit:      QueryInt(r, "limit", 20),
	}

	response, err := s.app.GrowthService.GetRanking(r.Context(), query)
	if err != nil {
		if strings.Contains(err.Error(), "unknown sort") {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get ranking: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, response)
}

// handleSymbols handles GET /api/symbols?page=&limit=.
func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	page := QueryInt(r, "page", 1)
	limit := QueryInt(r, "limit", 100)

	symbols, err := s.app.Storage.SymbolStore().ListPage(r.Context(), page, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list symbols: "+err.Error())
		return
	}
	total, err := s.app.Storage.SymbolStore().Count(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to count symbols: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": symbols,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// syncRequest is the POST /api/symbols/sync body.
type syncRequest struct {
	Market string `json:"market"`
}

// handleSymbolSync handles POST /api/symbols/sync.
func (s *Server) handleSymbolSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req syncRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Market) == "" {
		WriteError(w, http.StatusBadRequest, "Field 'market' is required")
		return
	}

	count, err := s.app.Pipeline.SyncListing(r.Context(), req.Market)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "Listing sync failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"market":  strings.ToUpper(strings.TrimSpace(req.Market)),
		"symbols": count,
	})
}
