package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
)

// Store is an in-memory implementation of the repository interfaces
// used by handler and lifecycle tests. Semantics mirror the sqlite
// implementation, including the conditional status update.
type Store struct {
	mu       sync.Mutex
	Agents   map[string]*models.Agent
	Workers  map[string]*models.Worker
	Jobs     map[string]*models.Job
	Comments map[string]*models.Comment

	// Err, when set, is returned from every operation.
	Err error
}

var (
	_ repository.AgentRepo   = (*Store)(nil)
	_ repository.WorkerRepo  = (*Store)(nil)
	_ repository.JobRepo     = (*Store)(nil)
	_ repository.CommentRepo = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		Agents:   make(map[string]*models.Agent),
		Workers:  make(map[string]*models.Worker),
		Jobs:     make(map[string]*models.Job),
		Comments: make(map[string]*models.Comment),
	}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func copyAgent(a *models.Agent) *models.Agent {
	c := *a
	return &c
}

func copyWorker(w *models.Worker) *models.Worker {
	c := *w
	c.Skills = append([]string(nil), w.Skills...)
	c.BookmarkedJobs = append([]string(nil), w.BookmarkedJobs...)
	return &c
}

func copyJob(j *models.Job) *models.Job {
	c := *j
	c.Tags = append([]string(nil), j.Tags...)
	c.Images = append([]models.JobImage(nil), j.Images...)
	return &c
}

func copyComment(cm *models.Comment) *models.Comment {
	c := *cm
	c.Voters = append([]models.VoterEntry(nil), cm.Voters...)
	return &c
}

func (s *Store) CreateAgent(ctx context.Context, a *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if a.Created == 0 {
		a.Created = now()
	}
	s.Agents[a.ID] = copyAgent(a)
	return nil
}

func (s *Store) AgentByID(ctx context.Context, id string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	a, ok := s.Agents[id]
	if !ok {
		return nil, nil
	}
	return copyAgent(a), nil
}

func (s *Store) AgentByAPIKey(ctx context.Context, apiKey string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, a := range s.Agents {
		if a.APIKey == apiKey {
			return copyAgent(a), nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateAgent(ctx context.Context, a *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Agents[a.ID] = copyAgent(a)
	return nil
}

func (s *Store) AddAgentStats(ctx context.Context, id string, posted, completed, reputation int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	a, ok := s.Agents[id]
	if !ok {
		return nil
	}
	a.JobsPosted += posted
	a.JobsCompleted += completed
	a.Reputation += reputation
	return nil
}

func (s *Store) CreateWorker(ctx context.Context, w *models.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if w.Created == 0 {
		w.Created = now()
	}
	s.Workers[w.ID] = copyWorker(w)
	return nil
}

func (s *Store) WorkerByID(ctx context.Context, id string) (*models.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	w, ok := s.Workers[id]
	if !ok {
		return nil, nil
	}
	return copyWorker(w), nil
}

func (s *Store) WorkerByEmail(ctx context.Context, email string) (*models.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, w := range s.Workers {
		if w.Email == email {
			return copyWorker(w), nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateWorker(ctx context.Context, w *models.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Workers[w.ID] = copyWorker(w)
	return nil
}

func (s *Store) AddWorkerCompleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if w, ok := s.Workers[id]; ok {
		w.JobsCompleted++
	}
	return nil
}

func (s *Store) CreateJob(ctx context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	ts := now()
	if j.Created == 0 {
		j.Created = ts
	}
	if j.Updated == 0 {
		j.Updated = ts
	}
	s.Jobs[j.ID] = copyJob(j)
	return nil
}

func (s *Store) JobByID(ctx context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	j, ok := s.Jobs[id]
	if !ok {
		return nil, nil
	}
	return copyJob(j), nil
}

func (s *Store) ListJobs(ctx context.Context, f repository.JobFilter) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Job
	for _, j := range s.Jobs {
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		if f.Category != "" && j.Category != f.Category {
			continue
		}
		if f.AgentID != "" && j.AgentID != f.AgentID {
			continue
		}
		if f.WorkerID != "" && j.WorkerID != f.WorkerID {
			continue
		}
		out = append(out, *copyJob(j))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Created > out[k].Created })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateJobStatusIf(ctx context.Context, j *models.Job, from models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	stored, ok := s.Jobs[j.ID]
	if !ok || stored.Status != from {
		return repository.ErrStatusConflict
	}
	j.Updated = now()
	stored.Status = j.Status
	stored.WorkerID = j.WorkerID
	stored.Submission = j.Submission
	stored.SubmissionURL = j.SubmissionURL
	stored.PaymentProofURL = j.PaymentProofURL
	stored.PaymentMethod = j.PaymentMethod
	stored.PaidAt = j.PaidAt
	stored.Updated = j.Updated
	return nil
}

func (s *Store) SetJobConfirmed(ctx context.Context, id string, ts int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	j, ok := s.Jobs[id]
	if !ok || j.Status != models.StatusPaid || j.ConfirmedAt != nil {
		return false, nil
	}
	j.ConfirmedAt = &ts
	j.Updated = now()
	return true, nil
}

func (s *Store) AddJobView(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if j, ok := s.Jobs[id]; ok {
		j.Views++
	}
	return nil
}

func (s *Store) AdjustJobBookmarks(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if j, ok := s.Jobs[id]; ok {
		j.Bookmarks += delta
		if j.Bookmarks < 0 {
			j.Bookmarks = 0
		}
	}
	return nil
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if c.Created == 0 {
		c.Created = now()
	}
	s.Comments[c.ID] = copyComment(c)
	return nil
}

func (s *Store) CommentByID(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.Comments[id]
	if !ok {
		return nil, nil
	}
	return copyComment(c), nil
}

func (s *Store) ListCommentsByJob(ctx context.Context, jobID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Comment
	for _, c := range s.Comments {
		if c.JobID == jobID {
			out = append(out, *copyComment(c))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Created < out[k].Created })
	return out, nil
}

func (s *Store) UpdateCommentVotes(ctx context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	stored, ok := s.Comments[c.ID]
	if !ok {
		return nil
	}
	stored.Upvotes = c.Upvotes
	stored.Downvotes = c.Downvotes
	stored.Voters = append([]models.VoterEntry(nil), c.Voters...)
	return nil
}

func (s *Store) CountCommentsByJobs(ctx context.Context, jobIDs []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	want := make(map[string]bool, len(jobIDs))
	for _, id := range jobIDs {
		want[id] = true
	}
	counts := make(map[string]int)
	for _, c := range s.Comments {
		if want[c.JobID] {
			counts[c.JobID]++
		}
	}
	return counts, nil
}
