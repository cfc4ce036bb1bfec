// Package api exposes the acquisition pipeline over HTTP: batch and
// download jobs, job status, and the persisted record sets.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitvault/scraper/internal/jobs"
	"github.com/kitvault/scraper/internal/records"
)

type Handlers struct {
	jobs   *jobs.Manager
	store  *records.Store
	logger *slog.Logger
}

func NewHandlers(jobs *jobs.Manager, store *records.Store, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:   jobs,
		store:  store,
		logger: logger,
	}
}

// Routes mounts every handler on a fresh router.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/batches", h.CreateBatch)
		r.Post("/downloads", h.CreateDownload)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{jobID}", h.GetJob)
		r.Delete("/jobs/{jobID}", h.CancelJob)
		r.Get("/records", h.ListRecordSets)
		r.Get("/records/latest", h.LatestRecordSet)
	})
	return r
}

// CreateBatchRequest carries the input URLs for one acquisition batch.
type CreateBatchRequest struct {
	URLs []string `json:"urls"`
}

// CreateDownloadRequest names the record set to download images for; an
// empty record_set means the most recent one.
type CreateDownloadRequest struct {
	RecordSet string `json:"record_set"`
}

// CreateJobResponse acknowledges an accepted job.
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateBatch queues an acquisition batch.
func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.URLs) == 0 {
		h.respondError(w, http.StatusBadRequest, "urls is required")
		return
	}

	job, err := h.jobs.CreateBatchJob(req.URLs)
	if err != nil {
		h.logger.Error("failed to create batch job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// CreateDownload queues a download run.
func (h *Handlers) CreateDownload(w http.ResponseWriter, r *http.Request) {
	var req CreateDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobs.CreateDownloadJob(req.RecordSet)
	if err != nil {
		h.logger.Error("failed to create download job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// GetJob returns the current state of one job.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs returns all jobs, newest first.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListJobs())
}

// CancelJob cancels a pending or running job.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	if err := h.jobs.CancelJob(jobID); err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			h.respondError(w, http.StatusNotFound, "job not found")
			return
		}
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// RecordSetList lists record set paths, newest first.
type RecordSetList struct {
	RecordSets []string `json:"record_sets"`
}

// ListRecordSets lists all persisted record sets.
func (h *Handlers) ListRecordSets(w http.ResponseWriter, r *http.Request) {
	paths, err := h.store.List()
	if err != nil {
		h.logger.Error("failed to list record sets", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list record sets")
		return
	}

	h.respondJSON(w, http.StatusOK, RecordSetList{RecordSets: paths})
}

// LatestRecordSetResponse is the newest record set with its contents.
type LatestRecordSetResponse struct {
	Path    string      `json:"path"`
	Records interface{} `json:"records"`
}

// LatestRecordSet returns the newest record set and its records.
func (h *Handlers) LatestRecordSet(w http.ResponseWriter, r *http.Request) {
	path, recs, err := h.store.Latest()
	if err != nil {
		if errors.Is(err, records.ErrNoRecordSets) {
			h.respondError(w, http.StatusNotFound, "no record sets found")
			return
		}
		h.logger.Error("failed to load latest record set", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load record set")
		return
	}

	h.respondJSON(w, http.StatusOK, LatestRecordSetResponse{Path: path, Records: recs})
}

// Health reports service liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
