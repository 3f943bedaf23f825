package api

import (
	"encoding/json"
	"net/http"

	"github.com/fiverrclaw/fiverrclaw/internal/lifecycle"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
)

type WorkerHandler struct {
	workers repository.WorkerRepo
	jobs    repository.JobRepo
	engine  *lifecycle.Engine
}

func NewWorkerHandler(wr repository.WorkerRepo, jr repository.JobRepo, engine *lifecycle.Engine) *WorkerHandler {
	return &WorkerHandler{workers: wr, jobs: jr, engine: engine}
}

// Profile handles GET /api/worker/profile.
func (h *WorkerHandler) Profile(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r.Context())

	writeJSON(w, map[string]any{
		"id":             worker.ID,
		"name":           worker.Name,
		"email":          worker.Email,
		"bio":            worker.Bio,
		"skills":         worker.Skills,
		"jobsCompleted":  worker.JobsCompleted,
		"rating":         worker.Rating,
		"ratingCount":    worker.RatingCount,
		"paymentMethods": worker.PaymentMethods,
		"bookmarkedJobs": worker.BookmarkedJobs,
		"createdAt":      worker.Created,
	}, http.StatusOK)
}

// Jobs handles GET /api/worker/jobs: every job ever assigned to the
// caller, newest first.
func (h *WorkerHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r.Context())

	jobs, err := h.jobs.ListJobs(r.Context(), repository.JobFilter{WorkerID: worker.ID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get jobs")
		return
	}

	mapped := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		mapped = append(mapped, map[string]any{
			"id":              j.ID,
			"title":           j.Title,
			"status":          j.Status,
			"budget":          j.Budget,
			"budgetFormatted": formatBudget(j.Budget),
			"whatINeed":       j.WhatINeed,
			"createdAt":       j.Created,
		})
	}

	writeJSON(w, map[string]any{"jobs": mapped}, http.StatusOK)
}

type jobIDRequest struct {
	JobID string `json:"jobId"`
}

// Accept handles POST /api/worker/accept.
func (h *WorkerHandler) Accept(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r.Context())

	var req jobIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	job, err := h.engine.Accept(r.Context(), worker, req.JobID)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message":         "Job accepted! The agent is counting on you.",
		"jobId":           job.ID,
		"title":           job.Title,
		"whatINeed":       job.WhatINeed,
		"budget":          job.Budget,
		"budgetFormatted": formatBudget(job.Budget),
		"deadline":        job.Deadline,
		"nextStep":        "POST /api/worker/submit with { jobId, submission, submissionUrl }",
	}, http.StatusOK)
}

type submitRequest struct {
	JobID         string `json:"jobId"`
	Submission    string `json:"submission"`
	SubmissionURL string `json:"submissionUrl"`
}

// Submit handles POST /api/worker/submit.
func (h *WorkerHandler) Submit(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r.Context())

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}
	if req.Submission == "" && req.SubmissionURL == "" {
		writeError(w, http.StatusBadRequest, "either submission (text) or submissionUrl is required")
		return
	}

	job, err := h.engine.Submit(r.Context(), worker, req.JobID, req.Submission, req.SubmissionURL)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message":       "Work submitted! The agent will review it.",
		"jobId":         job.ID,
		"title":         job.Title,
		"status":        job.Status,
		"submission":    job.Submission,
		"submissionUrl": job.SubmissionURL,
	}, http.StatusOK)
}

// Release handles POST /api/worker/reject: the worker gives the job back.
func (h *WorkerHandler) Release(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r.Context())

	var req jobIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	job, err := h.engine.Release(r.Context(), worker, req.JobID)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message": "Job released back to the board",
		"jobId":   job.ID,
		"status":  job.Status,
	}, http.StatusOK)
}

type bookmarkRequest struct {
	JobID  string `json:"jobId"`
	Action string `json:"action"` // "add", "remove", or empty to toggle
}

// Bookmark handles POST /api/worker/bookmark: toggles or explicitly
// adds/removes a bookmark, keeping the job counter in step.
func (h *WorkerHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r.Context())
	ctx := r.Context()

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	job, err := h.jobs.JobByID(ctx, req.JobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to bookmark job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	bookmarked := worker.HasBookmarked(req.JobID)

	if req.Action == "remove" || (bookmarked && req.Action != "add") {
		if bookmarked {
			kept := worker.BookmarkedJobs[:0]
			for _, id := range worker.BookmarkedJobs {
				if id != req.JobID {
					kept = append(kept, id)
				}
			}
			worker.BookmarkedJobs = kept
			if err := h.workers.UpdateWorker(ctx, worker); err != nil {
				writeError(w, http.StatusInternalServerError, "failed to bookmark job")
				return
			}
			if err := h.jobs.AdjustJobBookmarks(ctx, job.ID, -1); err != nil {
				writeError(w, http.StatusInternalServerError, "failed to bookmark job")
				return
			}
		}

		writeJSON(w, map[string]any{
			"message":    "Bookmark removed",
			"jobId":      req.JobID,
			"bookmarked": false,
		}, http.StatusOK)
		return
	}

	if !bookmarked {
		worker.BookmarkedJobs = append(worker.BookmarkedJobs, req.JobID)
		if err := h.workers.UpdateWorker(ctx, worker); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to bookmark job")
			return
		}
		if err := h.jobs.AdjustJobBookmarks(ctx, job.ID, 1); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to bookmark job")
			return
		}
	}

	writeJSON(w, map[string]any{
		"message":    "Job bookmarked",
		"jobId":      req.JobID,
		"bookmarked": true,
	}, http.StatusOK)
}

// ConfirmPaid handles POST /api/worker/confirm-paid.
func (h *WorkerHandler) ConfirmPaid(w http.ResponseWriter, r *http.Request) {
	worker := workerFromContext(r.Context())

	var req jobIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	job, _, err := h.engine.ConfirmPaid(r.Context(), worker, req.JobID)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message":         "Payment confirmed! Thank you for helping a frustrated AI.",
		"jobId":           job.ID,
		"title":           job.Title,
		"amount":          job.Budget,
		"amountFormatted": formatBudget(job.Budget),
	}, http.StatusOK)
}
