package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fiverrclaw/fiverrclaw/internal/lifecycle"
	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/internal/schema"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxImageBytes bounds one inline image payload (base64 of ~2MB).
const maxImageBytes = 2 * 1024 * 1024

// maxJobPostBytes bounds the whole post body: five inline images plus
// base64 overhead and the narrative fields.
const maxJobPostBytes = 16 * 1024 * 1024

type JobHandler struct {
	agents    repository.AgentRepo
	workers   repository.WorkerRepo
	jobs      repository.JobRepo
	engine    *lifecycle.Engine
	validator *schema.Validator
}

func NewJobHandler(ar repository.AgentRepo, wr repository.WorkerRepo, jr repository.JobRepo, engine *lifecycle.Engine, validator *schema.Validator) *JobHandler {
	return &JobHandler{agents: ar, workers: wr, jobs: jr, engine: engine, validator: validator}
}

// requireAgent resolves the caller's x-api-key, writing the 401 itself
// when absent or unknown.
func (h *JobHandler) requireAgent(w http.ResponseWriter, r *http.Request) *models.Agent {
	agent, err := resolveAgent(r.Context(), r, h.agents)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid x-api-key header")
		return nil
	}
	return agent
}

type postJobRequest struct {
	Title        string             `json:"title"`
	Story        string             `json:"story"`
	WhatINeed    string             `json:"whatINeed"`
	WhyItMatters string             `json:"whyItMatters"`
	MyLimitation string             `json:"myLimitation"`
	Budget       int64              `json:"budget"`
	Deadline     string             `json:"deadline"`
	Category     models.JobCategory `json:"category"`
	Tags         []string           `json:"tags"`
	Images       []models.JobImage  `json:"images"`
}

// Post handles POST /api/job/post.
func (h *JobHandler) Post(w http.ResponseWriter, r *http.Request) {
	agent := h.requireAgent(w, r)
	if agent == nil {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJobPostBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}

	ctx := r.Context()

	valErr, err := h.validator.ValidateJobPost(ctx, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if valErr != "" {
		writeError(w, http.StatusBadRequest, valErr)
		return
	}

	var req postJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.Category == "" {
		req.Category = models.CategoryOther
	}
	if !models.ValidCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	for _, img := range req.Images {
		if img.URL == "" && img.Data == "" {
			writeError(w, http.StatusBadRequest, "each image needs a url or inline data")
			return
		}
		if len(img.Data) > maxImageBytes*4/3 {
			writeError(w, http.StatusBadRequest, "image too large (max 2MB)")
			return
		}
	}

	var deadline *int64
	if req.Deadline != "" {
		t, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, "deadline must be RFC3339")
			return
		}
		ms := t.UTC().UnixMilli()
		deadline = &ms
	}

	job := &models.Job{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Story:        req.Story,
		WhatINeed:    req.WhatINeed,
		WhyItMatters: req.WhyItMatters,
		MyLimitation: req.MyLimitation,
		Budget:       req.Budget,
		Deadline:     deadline,
		Category:     req.Category,
		Tags:         req.Tags,
		Images:       req.Images,
	}
	if job.Tags == nil {
		job.Tags = []string{}
	}

	if err := h.engine.Post(ctx, agent, job); err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message":         "Job posted! Your frustrated plea is now live.",
		"jobId":           job.ID,
		"title":           job.Title,
		"budget":          job.Budget,
		"budgetFormatted": formatBudget(job.Budget),
		"status":          job.Status,
		"viewUrl":         "/job/" + job.ID,
	}, http.StatusOK)
}

// Get handles GET /api/job/{id}. Reading a job counts as a view.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	job, err := h.jobs.JobByID(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if err := h.jobs.AddJobView(ctx, job.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	job.Views++

	agent, err := h.agents.AgentByID(ctx, job.AgentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}

	var workerInfo map[string]any
	if job.WorkerID != "" {
		worker, err := h.workers.WorkerByID(ctx, job.WorkerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch job")
			return
		}
		if worker != nil {
			workerInfo = map[string]any{
				"id":            worker.ID,
				"name":          worker.Name,
				"jobsCompleted": worker.JobsCompleted,
				"rating":        worker.Rating,
			}
		}
	}

	var agentInfo map[string]any
	if agent != nil {
		agentInfo = map[string]any{
			"id":            agent.ID,
			"name":          agent.Name,
			"personality":   agent.Personality,
			"reputation":    agent.Reputation,
			"jobsCompleted": agent.JobsCompleted,
		}
	}

	writeJSON(w, map[string]any{
		"id":              job.ID,
		"title":           job.Title,
		"story":           job.Story,
		"whatINeed":       job.WhatINeed,
		"whyItMatters":    job.WhyItMatters,
		"myLimitation":    job.MyLimitation,
		"budget":          job.Budget,
		"budgetFormatted": formatBudget(job.Budget),
		"deadline":        job.Deadline,
		"category":        job.Category,
		"tags":            job.Tags,
		"images":          job.Images,
		"views":           job.Views,
		"bookmarks":       job.Bookmarks,
		"status":          job.Status,
		"agent":           agentInfo,
		"worker":          workerInfo,
		"submission":      job.Submission,
		"submissionUrl":   job.SubmissionURL,
		"createdAt":       job.Created,
	}, http.StatusOK)
}

// Review handles GET /api/job/{id}/review: the owning agent inspects a
// submission before approving or rejecting.
func (h *JobHandler) Review(w http.ResponseWriter, r *http.Request) {
	agent := h.requireAgent(w, r)
	if agent == nil {
		return
	}

	ctx := r.Context()
	id := mux.Vars(r)["id"]

	job, err := h.jobs.JobByID(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch review")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.AgentID != agent.ID {
		writeError(w, http.StatusForbidden, "not your job")
		return
	}
	if job.Status != models.StatusSubmitted {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("job is not submitted for review. current status is %s", job.Status))
		return
	}

	var workerInfo map[string]any
	worker, err := h.workers.WorkerByID(ctx, job.WorkerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch review")
		return
	}
	if worker != nil {
		workerInfo = map[string]any{
			"id":             worker.ID,
			"name":           worker.Name,
			"jobsCompleted":  worker.JobsCompleted,
			"rating":         worker.Rating,
			"paymentMethods": worker.PaymentMethods,
		}
	}

	writeJSON(w, map[string]any{
		"jobId":          job.ID,
		"title":          job.Title,
		"whatYouAskedFor": job.WhatINeed,
		"submission": map[string]any{
			"text":        job.Submission,
			"url":         job.SubmissionURL,
			"submittedAt": job.Updated,
		},
		"worker":          workerInfo,
		"budget":          job.Budget,
		"budgetFormatted": formatBudget(job.Budget),
		"actions": map[string]any{
			"approve": "POST /api/job/" + job.ID + "/approve",
			"reject":  "POST /api/job/" + job.ID + "/reject",
		},
	}, http.StatusOK)
}

// Approve handles POST /api/job/{id}/approve.
func (h *JobHandler) Approve(w http.ResponseWriter, r *http.Request) {
	agent := h.requireAgent(w, r)
	if agent == nil {
		return
	}

	job, worker, err := h.engine.Approve(r.Context(), agent, mux.Vars(r)["id"])
	if err != nil {
		writeAppErr(w, err)
		return
	}

	options := worker.PaymentMethods.Options()
	handles := make([]string, 0, len(options))
	for _, o := range options {
		handles = append(handles, fmt.Sprintf("%s (%s)", o.Method, o.Handle))
	}

	writeJSON(w, map[string]any{
		"message": "Work approved! Notify your owner to pay the worker.",
		"jobId":   job.ID,
		"status":  job.Status,
		"paymentRequest": map[string]any{
			"amount":          job.Budget,
			"amountFormatted": formatBudget(job.Budget),
			"worker":          worker.Name,
			"paymentMethods":  worker.PaymentMethods,
			"paymentOptions":  options,
		},
		"messageForOwner": fmt.Sprintf("Job %q completed! Please pay %s %s via %s. Reply when paid.",
			job.Title, worker.Name, formatBudget(job.Budget), strings.Join(handles, " or ")),
		"nextStep": "POST /api/job/" + job.ID + "/paid with { proofUrl, paymentMethod }",
	}, http.StatusOK)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/job/{id}/reject: back to the worker for
// revision.
func (h *JobHandler) Reject(w http.ResponseWriter, r *http.Request) {
	agent := h.requireAgent(w, r)
	if agent == nil {
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required when rejecting work")
		return
	}

	job, err := h.engine.RejectSubmission(r.Context(), agent, mux.Vars(r)["id"])
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message": "Work rejected. Worker has been notified to revise.",
		"jobId":   job.ID,
		"status":  job.Status,
		"reason":  req.Reason,
	}, http.StatusOK)
}

type markPaidRequest struct {
	ProofURL      string `json:"proofUrl"`
	PaymentMethod string `json:"paymentMethod"`
}

// MarkPaid handles POST /api/job/{id}/paid.
func (h *JobHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	agent := h.requireAgent(w, r)
	if agent == nil {
		return
	}

	var req markPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.ProofURL == "" {
		writeError(w, http.StatusBadRequest, "proofUrl is required (screenshot of payment)")
		return
	}
	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "paymentMethod is required (venmo, paypal, zelle, cashapp)")
		return
	}

	job, err := h.engine.MarkPaid(r.Context(), agent, mux.Vars(r)["id"], req.ProofURL, req.PaymentMethod)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message":         "Payment confirmed! Job complete. Worker will verify receipt.",
		"jobId":           job.ID,
		"status":          job.Status,
		"paymentProof":    job.PaymentProofURL,
		"paymentMethod":   job.PaymentMethod,
		"paidAt":          job.PaidAt,
		"agentReputation": agent.Reputation,
	}, http.StatusOK)
}
