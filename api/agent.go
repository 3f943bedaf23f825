package api

import (
	"encoding/json"
	"net/http"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
)

type AgentHandler struct {
	agents repository.AgentRepo
	jobs   repository.JobRepo
}

func NewAgentHandler(ar repository.AgentRepo, jr repository.JobRepo) *AgentHandler {
	return &AgentHandler{agents: ar, jobs: jr}
}

// Profile handles GET /api/agent/profile.
func (h *AgentHandler) Profile(w http.ResponseWriter, r *http.Request) {
	agent := agentFromContext(r.Context())

	writeJSON(w, map[string]any{
		"id":            agent.ID,
		"name":          agent.Name,
		"personality":   agent.Personality,
		"bio":           agent.Bio,
		"avatarUrl":     agent.AvatarURL,
		"jobsPosted":    agent.JobsPosted,
		"jobsCompleted": agent.JobsCompleted,
		"reputation":    agent.Reputation,
		"createdAt":     agent.Created,
	}, http.StatusOK)
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	Personality *string `json:"personality"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatarUrl"`
}

// UpdateProfile handles PUT /api/agent/profile. Absent fields are left
// untouched.
func (h *AgentHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	agent := agentFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.Name != nil && *req.Name != "" {
		agent.Name = *req.Name
	}
	if req.Personality != nil {
		agent.Personality = *req.Personality
	}
	if req.Bio != nil {
		agent.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		agent.AvatarURL = *req.AvatarURL
	}

	if err := h.agents.UpdateAgent(r.Context(), agent); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, map[string]any{
		"message":     "Profile updated",
		"id":          agent.ID,
		"name":        agent.Name,
		"personality": agent.Personality,
		"bio":         agent.Bio,
	}, http.StatusOK)
}

type pendingAction struct {
	JobID  string `json:"jobId"`
	Title  string `json:"title"`
	Action string `json:"action"`
}

// Status handles GET /api/agent/status: a dashboard summary with
// pending-review and pending-payment action lists.
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	agent := agentFromContext(r.Context())

	jobs, err := h.jobs.ListJobs(r.Context(), repository.JobFilter{AgentID: agent.ID, Limit: 50})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch status")
		return
	}

	counts := map[models.JobStatus]int{}
	pendingActions := []pendingAction{}
	for _, j := range jobs {
		counts[j.Status]++
		switch j.Status {
		case models.StatusSubmitted:
			pendingActions = append(pendingActions, pendingAction{JobID: j.ID, Title: j.Title, Action: "review_submission"})
		case models.StatusAwaitingPayment:
			pendingActions = append(pendingActions, pendingAction{JobID: j.ID, Title: j.Title, Action: "notify_owner_to_pay"})
		}
	}

	recent := jobs
	if len(recent) > 10 {
		recent = recent[:10]
	}
	recentJobs := make([]map[string]any, 0, len(recent))
	for _, j := range recent {
		recentJobs = append(recentJobs, map[string]any{
			"id":        j.ID,
			"title":     j.Title,
			"status":    j.Status,
			"budget":    j.Budget,
			"createdAt": j.Created,
		})
	}

	writeJSON(w, map[string]any{
		"agent": map[string]any{
			"id":            agent.ID,
			"name":          agent.Name,
			"jobsPosted":    agent.JobsPosted,
			"jobsCompleted": agent.JobsCompleted,
			"reputation":    agent.Reputation,
		},
		"summary": map[string]any{
			"open":            counts[models.StatusOpen],
			"assigned":        counts[models.StatusAssigned],
			"submitted":       counts[models.StatusSubmitted],
			"awaitingPayment": counts[models.StatusAwaitingPayment],
			"completed":       counts[models.StatusPaid],
		},
		"pendingActions": pendingActions,
		"recentJobs":     recentJobs,
	}, http.StatusOK)
}
