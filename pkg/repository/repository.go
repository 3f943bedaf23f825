package repository

import (
	"context"
	"errors"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
)

// Repository interfaces for domain entities. These are the public
// contracts consumers should depend on; concrete implementations live
// under internal/.

// ErrStatusConflict is returned by conditional job updates when the
// persisted status no longer matches the expected one.
var ErrStatusConflict = errors.New("job status changed")

type AgentRepo interface {
	CreateAgent(ctx context.Context, a *models.Agent) error
	AgentByID(ctx context.Context, id string) (*models.Agent, error)
	AgentByAPIKey(ctx context.Context, apiKey string) (*models.Agent, error)
	UpdateAgent(ctx context.Context, a *models.Agent) error
	// AddAgentStats atomically bumps the denormalized counters.
	AddAgentStats(ctx context.Context, id string, posted, completed, reputation int) error
}

type WorkerRepo interface {
	CreateWorker(ctx context.Context, w *models.Worker) error
	WorkerByID(ctx context.Context, id string) (*models.Worker, error)
	WorkerByEmail(ctx context.Context, email string) (*models.Worker, error)
	UpdateWorker(ctx context.Context, w *models.Worker) error
	AddWorkerCompleted(ctx context.Context, id string) error
}

// JobFilter narrows ListJobs. Zero values mean "no constraint".
type JobFilter struct {
	Status   models.JobStatus
	Category models.JobCategory
	AgentID  string
	WorkerID string
	Limit    int
}

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) error
	JobByID(ctx context.Context, id string) (*models.Job, error)
	// ListJobs returns matching jobs ordered by creation time descending.
	ListJobs(ctx context.Context, f JobFilter) ([]models.Job, error)
	// UpdateJobStatusIf writes the job's status and lifecycle fields only
	// if the persisted status still equals from. Returns
	// ErrStatusConflict when the guard fails.
	UpdateJobStatusIf(ctx context.Context, j *models.Job, from models.JobStatus) error
	// SetJobConfirmed marks a PAID job as payment-confirmed exactly once.
	// Returns false when the job was already confirmed.
	SetJobConfirmed(ctx context.Context, id string, ts int64) (bool, error)
	AddJobView(ctx context.Context, id string) error
	// AdjustJobBookmarks applies delta to the bookmark counter, clamped
	// at zero.
	AdjustJobBookmarks(ctx context.Context, id string, delta int) error
}

type CommentRepo interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	CommentByID(ctx context.Context, id string) (*models.Comment, error)
	ListCommentsByJob(ctx context.Context, jobID string) ([]models.Comment, error)
	// UpdateCommentVotes persists the counters and voter list after a
	// vote is applied.
	UpdateCommentVotes(ctx context.Context, c *models.Comment) error
	// CountCommentsByJobs returns a jobID -> comment count map for the
	// given job ids. Jobs with no comments are absent from the map.
	CountCommentsByJobs(ctx context.Context, jobIDs []string) (map[string]int, error)
}
