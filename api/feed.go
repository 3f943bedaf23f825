package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/internal/ranking"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
)

type FeedHandler struct {
	jobs     repository.JobRepo
	agents   repository.AgentRepo
	comments repository.CommentRepo
}

func NewFeedHandler(jr repository.JobRepo, ar repository.AgentRepo, cr repository.CommentRepo) *FeedHandler {
	return &FeedHandler{jobs: jr, agents: ar, comments: cr}
}

// Feed handles GET /api/feed. Without a status param the feed shows OPEN
// jobs only; status=all spans every status with the status-priority tier
// engaged; an explicit status filters to it.
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	mode := ranking.SortMode(q.Get("sort"))
	if mode == "" {
		mode = ranking.SortTrending
	}
	if !ranking.ValidSortMode(mode) {
		writeError(w, http.StatusBadRequest, "sort must be trending, new, or budget")
		return
	}

	filter := repository.JobFilter{Status: models.StatusOpen}
	statusTier := false
	switch status := q.Get("status"); status {
	case "":
	case "all":
		filter.Status = ""
		statusTier = true
	default:
		if !models.ValidStatus(models.JobStatus(status)) {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = models.JobStatus(status)
	}

	if category := q.Get("category"); category != "" {
		if !models.ValidCategory(models.JobCategory(category)) {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		filter.Category = models.JobCategory(category)
	}

	limit := 20
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 50 {
		limit = 50
	}
	offset := 0
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	jobs, err := h.jobs.ListJobs(ctx, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch feed")
		return
	}

	entries, err := h.entriesFor(ctx, jobs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch feed")
		return
	}

	page, total, hasMore := ranking.Rank(entries, ranking.Options{
		Mode:       mode,
		StatusTier: statusTier,
		Offset:     offset,
		Limit:      limit,
	})

	enriched, err := h.enrich(ctx, page, 200, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch feed")
		return
	}

	writeJSON(w, map[string]any{
		"jobs":    enriched,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
		"hasMore": hasMore,
	}, http.StatusOK)
}

// Trending handles GET /api/feed/trending: open jobs only, pure
// engagement order, shorter previews.
func (h *FeedHandler) Trending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 20 {
		limit = 20
	}

	jobs, err := h.jobs.ListJobs(ctx, repository.JobFilter{Status: models.StatusOpen})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch trending")
		return
	}

	entries, err := h.entriesFor(ctx, jobs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch trending")
		return
	}

	page, _, _ := ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending, Limit: limit})

	enriched, err := h.enrich(ctx, page, 150, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch trending")
		return
	}

	writeJSON(w, map[string]any{"trending": enriched}, http.StatusOK)
}

func (h *FeedHandler) entriesFor(ctx context.Context, jobs []models.Job) ([]ranking.Entry, error) {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}

	counts, err := h.comments.CountCommentsByJobs(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]ranking.Entry, len(jobs))
	for i, j := range jobs {
		entries[i] = ranking.Entry{Job: j, CommentCount: counts[j.ID]}
	}

	return entries, nil
}

// enrich attaches the owning agent's public fields and a truncated story
// preview to each page entry.
func (h *FeedHandler) enrich(ctx context.Context, page []ranking.Entry, previewLen int, fullAgent bool) ([]map[string]any, error) {
	agentCache := map[string]*models.Agent{}
	out := make([]map[string]any, 0, len(page))

	for _, e := range page {
		j := e.Job

		agent, ok := agentCache[j.AgentID]
		if !ok {
			var err error
			agent, err = h.agents.AgentByID(ctx, j.AgentID)
			if err != nil {
				return nil, err
			}
			agentCache[j.AgentID] = agent
		}

		var agentInfo map[string]any
		if agent != nil {
			agentInfo = map[string]any{
				"name":        agent.Name,
				"personality": agent.Personality,
			}
			if fullAgent {
				agentInfo["reputation"] = agent.Reputation
			}
		}

		item := map[string]any{
			"id":              j.ID,
			"title":           j.Title,
			"story":           ranking.StoryPreview(j.Story, previewLen),
			"budget":          j.Budget,
			"budgetFormatted": formatBudget(j.Budget),
			"category":        j.Category,
			"views":           j.Views,
			"bookmarks":       j.Bookmarks,
			"agent":           agentInfo,
		}
		if fullAgent {
			item["myLimitation"] = j.MyLimitation
			item["tags"] = j.Tags
			item["status"] = j.Status
			item["createdAt"] = j.Created
			item["commentCount"] = e.CommentCount
		}

		out = append(out, item)
	}

	return out, nil
}
