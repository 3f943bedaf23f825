package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fiverrclaw/fiverrclaw/internal/comments"
	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxCommentLength = 2000

type CommentHandler struct {
	agentsRepo   repository.AgentRepo
	workersRepo  repository.WorkerRepo
	jobsRepo     repository.JobRepo
	commentsRepo repository.CommentRepo
}

func NewCommentHandler(ar repository.AgentRepo, wr repository.WorkerRepo, jr repository.JobRepo, cr repository.CommentRepo) *CommentHandler {
	return &CommentHandler{agentsRepo: ar, workersRepo: wr, jobsRepo: jr, commentsRepo: cr}
}

func commentView(c models.Comment) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"authorType": c.AuthorType,
		"authorId":   c.AuthorID,
		"authorName": c.AuthorName,
		"content":    c.Content,
		"image":      c.Image,
		"upvotes":    c.Upvotes,
		"downvotes":  c.Downvotes,
		"score":      c.Score(),
		"createdAt":  c.Created,
	}
}

// List handles GET /api/job/{id}/comments: the two-level tree, score
// order at both levels.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	all, err := h.commentsRepo.ListCommentsByJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch comments")
		return
	}

	threads := comments.BuildThreads(all)
	out := make([]map[string]any, 0, len(threads))
	for _, t := range threads {
		item := commentView(t.Comment)
		replies := make([]map[string]any, 0, len(t.Replies))
		for _, rep := range t.Replies {
			replies = append(replies, commentView(rep))
		}
		item["replies"] = replies
		out = append(out, item)
	}

	writeJSON(w, map[string]any{
		"comments": out,
		"total":    len(all),
	}, http.StatusOK)
}

type postCommentRequest struct {
	Content  string               `json:"content"`
	ParentID string               `json:"parentId"`
	Email    string               `json:"email"`
	Username string               `json:"username"`
	Image    *models.CommentImage `json:"image"`
}

// Post handles POST /api/job/{id}/comments. Agents authenticate with
// x-api-key; humans pass email+username and get a worker identity
// created on first use.
func (h *CommentHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := mux.Vars(r)["id"]

	job, err := h.jobsRepo.JobByID(ctx, jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to post comment")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	authorType, authorID, authorName, ok := h.resolveAuthor(w, r, req.Email, req.Username)
	if !ok {
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > maxCommentLength {
		writeError(w, http.StatusBadRequest, "comment too long (max 2000 characters)")
		return
	}
	if req.Image != nil && len(req.Image.Data) > maxImageBytes*4/3 {
		writeError(w, http.StatusBadRequest, "image too large (max 2MB)")
		return
	}

	if req.ParentID != "" {
		parent, err := h.commentsRepo.CommentByID(ctx, req.ParentID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to post comment")
			return
		}
		if parent == nil || parent.JobID != jobID {
			writeError(w, http.StatusNotFound, "parent comment not found")
			return
		}
	}

	comment := &models.Comment{
		ID:         uuid.NewString(),
		JobID:      jobID,
		ParentID:   req.ParentID,
		AuthorType: authorType,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
		Image:      req.Image,
		Voters:     []models.VoterEntry{},
	}
	if err := h.commentsRepo.CreateComment(ctx, comment); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to post comment")
		return
	}

	writeJSON(w, map[string]any{
		"message": "Comment posted",
		"comment": commentView(*comment),
	}, http.StatusOK)
}

// resolveAuthor picks the commenting identity: agent via API key first,
// otherwise a worker found or created from email+username. On failure it
// writes the error response and returns ok=false.
func (h *CommentHandler) resolveAuthor(w http.ResponseWriter, r *http.Request, email, username string) (models.AuthorType, string, string, bool) {
	ctx := r.Context()

	agent, err := resolveAgent(ctx, r, h.agentsRepo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to post comment")
		return "", "", "", false
	}
	if agent != nil {
		return models.AuthorAgent, agent.ID, agent.Name, true
	}

	if email == "" || username == "" {
		writeError(w, http.StatusBadRequest, "email and username are required")
		return "", "", "", false
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return "", "", "", false
	}
	username = strings.TrimSpace(username)
	if len(username) < 2 || len(username) > 30 {
		writeError(w, http.StatusBadRequest, "username must be 2-30 characters")
		return "", "", "", false
	}

	worker, err := h.workersRepo.WorkerByEmail(ctx, email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to post comment")
		return "", "", "", false
	}
	if worker == nil {
		worker = &models.Worker{
			ID:     uuid.NewString(),
			Email:  email,
			Name:   username,
			Skills: []string{},
		}
		if err := h.workersRepo.CreateWorker(ctx, worker); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to post comment")
			return "", "", "", false
		}
	} else if worker.Name != username {
		worker.Name = username
		if err := h.workersRepo.UpdateWorker(ctx, worker); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to post comment")
			return "", "", "", false
		}
	}

	return models.AuthorWorker, worker.ID, worker.Name, true
}

type voteRequest struct {
	Vote  string `json:"vote"` // "up", "down", or "remove"
	Email string `json:"email"`
}

// Vote handles POST /api/comment/{id}/vote.
func (h *CommentHandler) Vote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	commentID := mux.Vars(r)["id"]

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var voter models.VoterKey
	agent, err := resolveAgent(ctx, r, h.agentsRepo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to vote")
		return
	}
	switch {
	case agent != nil:
		voter = models.VoterKey{Type: models.AuthorAgent, ID: agent.ID}
	case req.Email != "":
		worker, err := h.workersRepo.WorkerByEmail(ctx, strings.ToLower(req.Email))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to vote")
			return
		}
		if worker == nil {
			writeError(w, http.StatusUnauthorized, "email not found. post a comment first to register.")
			return
		}
		voter = models.VoterKey{Type: models.AuthorWorker, ID: worker.ID}
	default:
		writeError(w, http.StatusUnauthorized, "authentication required (email for humans, x-api-key for agents)")
		return
	}

	dir := comments.Direction(req.Vote)
	if !comments.ValidDirection(dir) {
		writeError(w, http.StatusBadRequest, `vote must be "up", "down", or "remove"`)
		return
	}

	comment, err := h.commentsRepo.CommentByID(ctx, commentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to vote")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	comments.ApplyVote(comment, voter, dir)
	if err := h.commentsRepo.UpdateCommentVotes(ctx, comment); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to vote")
		return
	}

	message := "Voted " + req.Vote
	if dir == comments.VoteRemove {
		message = "Vote removed"
	}

	writeJSON(w, map[string]any{
		"message":   message,
		"upvotes":   comment.Upvotes,
		"downvotes": comment.Downvotes,
		"score":     comment.Score(),
	}, http.StatusOK)
}
