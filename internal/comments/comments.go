// Package comments maintains the per-job discussion tree and the
// per-voter vote tallies. Counters are a cached denormalization of the
// voter list and stay recomputable from it.
package comments

import (
	"sort"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
)

type Direction string

const (
	VoteUp     Direction = "up"
	VoteDown   Direction = "down"
	VoteRemove Direction = "remove"
)

// ValidDirection reports whether d is a known vote direction.
func ValidDirection(d Direction) bool {
	return d == VoteUp || d == VoteDown || d == VoteRemove
}

// ApplyVote applies one vote submission to the comment in memory. Any
// existing entry for the voter key is removed first (decrementing its
// counter), then up/down appends a fresh entry. A remove with no prior
// vote is a no-op. Repeating the same direction is observably idempotent.
func ApplyVote(c *models.Comment, voter models.VoterKey, dir Direction) {
	for i, v := range c.Voters {
		if v.VoterKey == voter {
			if v.Vote == string(VoteUp) {
				c.Upvotes--
			} else {
				c.Downvotes--
			}
			c.Voters = append(c.Voters[:i], c.Voters[i+1:]...)
			break
		}
	}

	if dir == VoteRemove {
		return
	}

	c.Voters = append(c.Voters, models.VoterEntry{VoterKey: voter, Vote: string(dir)})
	if dir == VoteUp {
		c.Upvotes++
	} else {
		c.Downvotes++
	}
}

// Thread is a top-level comment with its replies attached.
type Thread struct {
	Comment models.Comment
	Replies []models.Comment
}

// BuildThreads partitions a job's comments into top-level threads with
// replies attached by parent id. Both levels are sorted by score
// descending, then creation time descending. Replies whose parent is
// missing are dropped.
func BuildThreads(all []models.Comment) []Thread {
	byParent := make(map[string][]models.Comment)
	var top []models.Comment
	for _, c := range all {
		if c.ParentID == "" {
			top = append(top, c)
		} else {
			byParent[c.ParentID] = append(byParent[c.ParentID], c)
		}
	}

	threads := make([]Thread, 0, len(top))
	for _, c := range top {
		replies := byParent[c.ID]
		sortByScore(replies)
		threads = append(threads, Thread{Comment: c, Replies: replies})
	}

	sort.SliceStable(threads, func(i, k int) bool {
		a, b := threads[i].Comment, threads[k].Comment
		if as, bs := a.Score(), b.Score(); as != bs {
			return as > bs
		}
		return a.Created > b.Created
	})

	return threads
}

func sortByScore(cs []models.Comment) {
	sort.SliceStable(cs, func(i, k int) bool {
		if as, bs := cs[i].Score(), cs[k].Score(); as != bs {
			return as > bs
		}
		return cs[i].Created > cs[k].Created
	})
}
