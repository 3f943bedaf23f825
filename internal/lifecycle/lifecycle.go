// Package lifecycle owns the job status state machine. Every transition
// is written as a conditional update keyed on the expected current
// status, so two racing requests cannot both win; the loser gets a
// state-conflict error naming the status it found.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/fiverrclaw/fiverrclaw/internal/apperr"
	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
)

type Engine struct {
	agents  repository.AgentRepo
	workers repository.WorkerRepo
	jobs    repository.JobRepo
}

func NewEngine(ar repository.AgentRepo, wr repository.WorkerRepo, jr repository.JobRepo) *Engine {
	return &Engine{agents: ar, workers: wr, jobs: jr}
}

// Post creates a job in OPEN and bumps the agent's posted counter.
func (e *Engine) Post(ctx context.Context, agent *models.Agent, job *models.Job) error {
	job.AgentID = agent.ID
	job.Status = models.StatusOpen

	if err := e.jobs.CreateJob(ctx, job); err != nil {
		return apperr.Internalf(err, "create job")
	}
	if err := e.agents.AddAgentStats(ctx, agent.ID, 1, 0, 0); err != nil {
		return apperr.Internalf(err, "update agent stats")
	}
	agent.JobsPosted++

	return nil
}

// Accept assigns an OPEN job to the worker.
func (e *Engine) Accept(ctx context.Context, worker *models.Worker, jobID string) (*models.Job, error) {
	job, err := e.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.StatusOpen {
		return nil, apperr.Conflictf("job is not available. current status is %s, expected %s", job.Status, models.StatusOpen)
	}

	job.Status = models.StatusAssigned
	job.WorkerID = worker.ID
	if err := e.transition(ctx, job, models.StatusOpen); err != nil {
		return nil, err
	}

	return job, nil
}

// Submit stores the worker's submission on an ASSIGNED job.
func (e *Engine) Submit(ctx context.Context, worker *models.Worker, jobID, submission, submissionURL string) (*models.Job, error) {
	job, err := e.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.WorkerID != worker.ID {
		return nil, apperr.Forbiddenf("this job is not assigned to you")
	}
	if job.Status != models.StatusAssigned {
		return nil, apperr.Conflictf("cannot submit. job status is %s, expected %s", job.Status, models.StatusAssigned)
	}

	job.Status = models.StatusSubmitted
	job.Submission = submission
	job.SubmissionURL = submissionURL
	if err := e.transition(ctx, job, models.StatusAssigned); err != nil {
		return nil, err
	}

	return job, nil
}

// RejectSubmission sends a SUBMITTED job back to the worker for revision,
// clearing the submission.
func (e *Engine) RejectSubmission(ctx context.Context, agent *models.Agent, jobID string) (*models.Job, error) {
	job, err := e.loadOwnedJob(ctx, agent, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.StatusSubmitted {
		return nil, apperr.Conflictf("cannot reject. job status is %s, expected %s", job.Status, models.StatusSubmitted)
	}

	job.Status = models.StatusAssigned
	job.Submission = ""
	job.SubmissionURL = ""
	if err := e.transition(ctx, job, models.StatusSubmitted); err != nil {
		return nil, err
	}

	return job, nil
}

// Approve moves a SUBMITTED job to AWAITING_PAYMENT and returns the
// assigned worker so the caller can surface payment handles.
func (e *Engine) Approve(ctx context.Context, agent *models.Agent, jobID string) (*models.Job, *models.Worker, error) {
	job, err := e.loadOwnedJob(ctx, agent, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != models.StatusSubmitted {
		return nil, nil, apperr.Conflictf("cannot approve. job status is %s, expected %s", job.Status, models.StatusSubmitted)
	}

	worker, err := e.workers.WorkerByID(ctx, job.WorkerID)
	if err != nil {
		return nil, nil, apperr.Internalf(err, "load worker")
	}
	if worker == nil {
		return nil, nil, apperr.NotFoundf("worker not found")
	}

	job.Status = models.StatusAwaitingPayment
	if err := e.transition(ctx, job, models.StatusSubmitted); err != nil {
		return nil, nil, err
	}

	return job, worker, nil
}

// MarkPaid records payment proof on an AWAITING_PAYMENT job and applies
// the completion side effects to both parties.
func (e *Engine) MarkPaid(ctx context.Context, agent *models.Agent, jobID, proofURL, paymentMethod string) (*models.Job, error) {
	job, err := e.loadOwnedJob(ctx, agent, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.StatusAwaitingPayment {
		return nil, apperr.Conflictf("cannot mark as paid. job status is %s, expected %s", job.Status, models.StatusAwaitingPayment)
	}

	paidAt := time.Now().UTC().UnixMilli()
	job.Status = models.StatusPaid
	job.PaymentProofURL = proofURL
	job.PaymentMethod = paymentMethod
	job.PaidAt = &paidAt
	if err := e.transition(ctx, job, models.StatusAwaitingPayment); err != nil {
		return nil, err
	}

	if err := e.agents.AddAgentStats(ctx, agent.ID, 0, 1, 10); err != nil {
		return nil, apperr.Internalf(err, "update agent stats")
	}
	agent.JobsCompleted++
	agent.Reputation += 10

	if job.WorkerID != "" {
		if err := e.workers.AddWorkerCompleted(ctx, job.WorkerID); err != nil {
			return nil, apperr.Internalf(err, "update worker stats")
		}
	}

	return job, nil
}

// ConfirmPaid lets the assigned worker acknowledge receipt. The first
// confirmation grants the agent +5 reputation; repeats are no-ops.
func (e *Engine) ConfirmPaid(ctx context.Context, worker *models.Worker, jobID string) (*models.Job, bool, error) {
	job, err := e.loadJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	if job.WorkerID != worker.ID {
		return nil, false, apperr.Forbiddenf("this job is not assigned to you")
	}
	if job.Status != models.StatusPaid {
		return nil, false, apperr.Conflictf("job is not marked as paid. current status is %s, expected %s", job.Status, models.StatusPaid)
	}

	first, err := e.jobs.SetJobConfirmed(ctx, job.ID, time.Now().UTC().UnixMilli())
	if err != nil {
		return nil, false, apperr.Internalf(err, "confirm payment")
	}
	if first {
		if err := e.agents.AddAgentStats(ctx, job.AgentID, 0, 0, 5); err != nil {
			return nil, false, apperr.Internalf(err, "update agent stats")
		}
	}

	return job, first, nil
}

// Release puts an assigned job back on the board. There is no status
// precondition beyond ownership of the assignment.
func (e *Engine) Release(ctx context.Context, worker *models.Worker, jobID string) (*models.Job, error) {
	job, err := e.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.WorkerID != worker.ID {
		return nil, apperr.Forbiddenf("this job is not assigned to you")
	}

	from := job.Status
	job.Status = models.StatusOpen
	job.WorkerID = ""
	job.Submission = ""
	job.SubmissionURL = ""
	if err := e.transition(ctx, job, from); err != nil {
		return nil, err
	}

	return job, nil
}

func (e *Engine) loadJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := e.jobs.JobByID(ctx, jobID)
	if err != nil {
		return nil, apperr.Internalf(err, "load job")
	}
	if job == nil {
		return nil, apperr.NotFoundf("job not found")
	}
	return job, nil
}

func (e *Engine) loadOwnedJob(ctx context.Context, agent *models.Agent, jobID string) (*models.Job, error) {
	job, err := e.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.AgentID != agent.ID {
		return nil, apperr.Forbiddenf("not your job")
	}
	return job, nil
}

// transition performs the guarded write. On a lost race it re-reads the
// job to report the status the winner left behind.
func (e *Engine) transition(ctx context.Context, job *models.Job, from models.JobStatus) error {
	err := e.jobs.UpdateJobStatusIf(ctx, job, from)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrStatusConflict) {
		return apperr.Internalf(err, "update job")
	}

	current, rerr := e.jobs.JobByID(ctx, job.ID)
	if rerr != nil || current == nil {
		return apperr.Conflictf("job status changed, expected %s", from)
	}
	return apperr.Conflictf("job status is %s, expected %s", current.Status, from)
}
