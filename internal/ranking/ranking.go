// Package ranking computes the feed sort order. It is pure: callers load
// candidate jobs and comment counts, Rank sorts and paginates.
package ranking

import (
	"sort"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
)

type SortMode string

const (
	SortTrending SortMode = "trending"
	SortNew      SortMode = "new"
	SortBudget   SortMode = "budget"
)

// ValidSortMode reports whether m is a known sort mode.
func ValidSortMode(m SortMode) bool {
	return m == SortTrending || m == SortNew || m == SortBudget
}

// Entry pairs a job with its comment count for scoring.
type Entry struct {
	Job          models.Job
	CommentCount int
}

// EngagementScore blends comment count, bookmarks, and views.
func EngagementScore(commentCount, bookmarks, views int) int {
	return commentCount*5 + bookmarks*3 + views
}

// Score is the engagement score for this entry.
func (e Entry) Score() int {
	return EngagementScore(e.CommentCount, e.Job.Bookmarks, e.Job.Views)
}

// StatusPriority tiers jobs so open work surfaces first and paid work
// sinks last, regardless of engagement.
func StatusPriority(s models.JobStatus) int {
	switch s {
	case models.StatusOpen:
		return 1
	case models.StatusPaid:
		return 999
	default:
		return 500
	}
}

// Options controls one ranking pass. StatusTier enables the
// status-priority leading key; it only matters when entries span
// multiple statuses.
type Options struct {
	Mode       SortMode
	StatusTier bool
	Offset     int
	Limit      int
}

// Rank sorts entries by the mode's key and applies offset/limit after
// the full sort. Returns the page, the pre-pagination total, and whether
// more entries follow the page.
func Rank(entries []Entry, opts Options) (page []Entry, total int, hasMore bool) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, k int) bool {
		a, b := sorted[i], sorted[k]
		if opts.StatusTier {
			pa, pb := StatusPriority(a.Job.Status), StatusPriority(b.Job.Status)
			if pa != pb {
				return pa < pb
			}
		}
		switch opts.Mode {
		case SortBudget:
			if a.Job.Budget != b.Job.Budget {
				return a.Job.Budget > b.Job.Budget
			}
		case SortNew:
			// createdAt is the primary key for "new"
		default: // trending
			if sa, sb := a.Score(), b.Score(); sa != sb {
				return sa > sb
			}
		}
		return a.Job.Created > b.Job.Created
	})

	total = len(sorted)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if opts.Limit > 0 && offset+opts.Limit < end {
		end = offset + opts.Limit
	}

	page = sorted[offset:end]
	return page, total, offset+len(page) < total
}

// StoryPreview truncates a story to max characters, appending an
// ellipsis when cut.
func StoryPreview(story string, max int) string {
	runes := []rune(story)
	if len(runes) <= max {
		return story
	}
	return string(runes[:max]) + "..."
}
