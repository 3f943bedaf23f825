package ranking_test

import (
	"testing"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/internal/ranking"
)

func entry(id string, status models.JobStatus, comments, bookmarks, views int, budget, created int64) ranking.Entry {
	return ranking.Entry{
		Job: models.Job{
			ID:        id,
			Status:    status,
			Bookmarks: bookmarks,
			Views:     views,
			Budget:    budget,
			Created:   created,
		},
		CommentCount: comments,
	}
}

func ids(entries []ranking.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Job.ID
	}
	return out
}

func assertOrder(t *testing.T, got []ranking.Entry, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries %v, want %d %v", len(got), ids(got), len(want), want)
	}
	for i, id := range want {
		if got[i].Job.ID != id {
			t.Fatalf("position %d: got %s, want %s (full order %v)", i, got[i].Job.ID, id, ids(got))
		}
	}
}

func TestEngagementScoreWeights(t *testing.T) {
	tests := []struct {
		name                       string
		comments, bookmarks, views int
		want                       int
	}{
		{"zero", 0, 0, 0, 0},
		{"views only", 0, 0, 7, 7},
		{"one bookmark beats two views", 0, 1, 0, 3},
		{"one comment beats one bookmark", 1, 0, 0, 5},
		{"mixed", 2, 3, 4, 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ranking.EngagementScore(tt.comments, tt.bookmarks, tt.views); got != tt.want {
				t.Errorf("EngagementScore(%d, %d, %d) = %d, want %d", tt.comments, tt.bookmarks, tt.views, got, tt.want)
			}
		})
	}
}

func TestEngagementScoreBookmarkMonotonic(t *testing.T) {
	base := ranking.EngagementScore(2, 1, 10)
	bumped := ranking.EngagementScore(2, 2, 10)
	if bumped-base != 3 {
		t.Errorf("adding one bookmark changed score by %d, want 3", bumped-base)
	}
}

func TestRankTrending(t *testing.T) {
	entries := []ranking.Entry{
		entry("low", models.StatusOpen, 0, 0, 1, 500, 100),
		entry("high", models.StatusOpen, 3, 2, 0, 500, 50),
		entry("mid", models.StatusOpen, 1, 1, 2, 500, 200),
	}

	page, total, hasMore := ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending})
	if total != 3 || hasMore {
		t.Fatalf("total=%d hasMore=%v, want 3 false", total, hasMore)
	}
	// scores: high=21, mid=10, low=1
	assertOrder(t, page, "high", "mid", "low")
}

func TestRankTrendingTieBreaksOnCreated(t *testing.T) {
	entries := []ranking.Entry{
		entry("older", models.StatusOpen, 1, 0, 0, 500, 100),
		entry("newer", models.StatusOpen, 1, 0, 0, 500, 200),
	}

	page, _, _ := ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending})
	assertOrder(t, page, "newer", "older")
}

func TestRankNew(t *testing.T) {
	entries := []ranking.Entry{
		entry("a", models.StatusOpen, 9, 9, 9, 500, 100),
		entry("b", models.StatusOpen, 0, 0, 0, 500, 300),
		entry("c", models.StatusOpen, 0, 0, 0, 500, 200),
	}

	page, _, _ := ranking.Rank(entries, ranking.Options{Mode: ranking.SortNew})
	assertOrder(t, page, "b", "c", "a")
}

func TestRankBudget(t *testing.T) {
	entries := []ranking.Entry{
		entry("cheap", models.StatusOpen, 0, 0, 0, 100, 300),
		entry("rich", models.StatusOpen, 0, 0, 0, 5000, 100),
		entry("tied-old", models.StatusOpen, 0, 0, 0, 1000, 100),
		entry("tied-new", models.StatusOpen, 0, 0, 0, 1000, 200),
	}

	page, _, _ := ranking.Rank(entries, ranking.Options{Mode: ranking.SortBudget})
	assertOrder(t, page, "rich", "tied-new", "tied-old", "cheap")
}

func TestRankStatusTier(t *testing.T) {
	entries := []ranking.Entry{
		entry("paid-hot", models.StatusPaid, 10, 10, 100, 500, 300),
		entry("assigned", models.StatusAssigned, 5, 5, 50, 500, 200),
		entry("open-cold", models.StatusOpen, 0, 0, 0, 500, 100),
	}

	page, _, _ := ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending, StatusTier: true})
	assertOrder(t, page, "open-cold", "assigned", "paid-hot")
}

func TestRankPagination(t *testing.T) {
	var entries []ranking.Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, entry(string(rune('a'+i)), models.StatusOpen, 0, 0, 5-i, 500, int64(i)))
	}
	// views give order a, b, c, d, e

	page, total, hasMore := ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending, Offset: 1, Limit: 2})
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if !hasMore {
		t.Error("hasMore = false, want true")
	}
	assertOrder(t, page, "b", "c")

	page, _, hasMore = ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending, Offset: 3, Limit: 10})
	if hasMore {
		t.Error("hasMore = true on final page")
	}
	assertOrder(t, page, "d", "e")

	page, total, hasMore = ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending, Offset: 99, Limit: 10})
	if len(page) != 0 || total != 5 || hasMore {
		t.Errorf("offset past end: page=%v total=%d hasMore=%v", ids(page), total, hasMore)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	entries := []ranking.Entry{
		entry("x", models.StatusOpen, 0, 0, 0, 500, 100),
		entry("y", models.StatusOpen, 0, 0, 9, 500, 50),
	}

	ranking.Rank(entries, ranking.Options{Mode: ranking.SortTrending})
	if entries[0].Job.ID != "x" || entries[1].Job.ID != "y" {
		t.Errorf("input slice reordered: %v", ids(entries))
	}
}

func TestValidSortMode(t *testing.T) {
	for _, m := range []ranking.SortMode{ranking.SortTrending, ranking.SortNew, ranking.SortBudget} {
		if !ranking.ValidSortMode(m) {
			t.Errorf("ValidSortMode(%q) = false", m)
		}
	}
	if ranking.ValidSortMode("hot") {
		t.Error(`ValidSortMode("hot") = true`)
	}
}

func TestStoryPreview(t *testing.T) {
	tests := []struct {
		name  string
		story string
		max   int
		want  string
	}{
		{"short untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello..."},
		{"multibyte safe", "héllo wörld", 7, "héllo w..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ranking.StoryPreview(tt.story, tt.max); got != tt.want {
				t.Errorf("StoryPreview(%q, %d) = %q, want %q", tt.story, tt.max, got, tt.want)
			}
		})
	}
}
