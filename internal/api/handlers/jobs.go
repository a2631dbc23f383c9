package handlers

import (
	"net/http"

	"github.com/dvloznov/rosacash/internal/api/middleware"
	"github.com/dvloznov/rosacash/internal/jobs"
	"github.com/dvloznov/rosacash/internal/logger"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore) *JobsHandler {
	return &JobsHandler{publisher: publisher, store: store}
}

// Register adds the job routes to mux.
func (h *JobsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/jobs/report", h.EnqueueReport)
	mux.HandleFunc("POST /api/jobs/sync-bills", h.EnqueueSyncBills)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
}

// EnqueueReport handles POST /api/jobs/report
func (h *JobsHandler) EnqueueReport(w http.ResponseWriter, r *http.Request) {
	var req jobs.ExportReportJob
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}
	h.enqueue(w, r, jobs.NewExportReportJob(req))
}

// EnqueueSyncBills handles POST /api/jobs/sync-bills
func (h *JobsHandler) EnqueueSyncBills(w http.ResponseWriter, r *http.Request) {
	var req jobs.SyncBillsJob
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}
	h.enqueue(w, r, jobs.NewSyncBillsJob(req))
}

// enqueue publishes job. Once published the job belongs to the workers, so only its ID and type are read back.
func (h *JobsHandler) enqueue(w http.ResponseWriter, r *http.Request, job *jobs.Job) {
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		writeErr(w, r, err, "Failed to enqueue job")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().Str("job_id", job.JobID).Str("type", string(job.Type)).Str("user_id", job.UserID()).Msg("Job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"type":   string(job.Type),
		"status": string(jobs.JobStatusPending),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeErr(w, r, err, "")
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeErr(w, r, err, "")
		return
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeErr(w, r, err, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
