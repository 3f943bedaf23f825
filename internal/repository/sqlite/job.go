package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
)

const jobColumns = `id, agent_id, title, story, what_i_need, why_it_matters, my_limitation, budget, deadline, category, tags, images, views, bookmarks, status, worker_id, submission, submission_url, payment_proof_url, payment_method, dispute_reason, dispute_proof_url, paid_at, confirmed_at, created, updated`

func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}
	ts := now()
	if j.Created == 0 {
		j.Created = ts
	}
	j.Updated = ts

	_, err := r.conn.Exec(ctx, `INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.AgentID, j.Title, j.Story, j.WhatINeed, j.WhyItMatters, j.MyLimitation,
		j.Budget, j.Deadline, string(j.Category),
		marshalJSON(j.Tags, "[]"), marshalJSON(j.Images, "[]"),
		j.Views, j.Bookmarks, string(j.Status), j.WorkerID,
		j.Submission, j.SubmissionURL, j.PaymentProofURL, j.PaymentMethod,
		j.DisputeReason, j.DisputeProofURL, j.PaidAt, j.ConfirmedAt,
		j.Created, j.Updated)
	return err
}

func (r *SQLiteRepo) JobByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *SQLiteRepo) ListJobs(ctx context.Context, f repository.JobFilter) ([]models.Job, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, f.AgentID)
	}
	if f.WorkerID != "" {
		where = append(where, "worker_id = ?")
		args = append(args, f.WorkerID)
	}

	q := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}

	return jobs, rows.Err()
}

// UpdateJobStatusIf writes the lifecycle fields guarded by the expected
// current status. A zero-row update means another request transitioned
// the job first.
func (r *SQLiteRepo) UpdateJobStatusIf(ctx context.Context, j *models.Job, from models.JobStatus) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}
	j.Updated = now()

	res, err := r.conn.Exec(ctx, `UPDATE jobs SET status = ?, worker_id = ?, submission = ?, submission_url = ?, payment_proof_url = ?, payment_method = ?, paid_at = ?, updated = ? WHERE id = ? AND status = ?`,
		string(j.Status), j.WorkerID, j.Submission, j.SubmissionURL,
		j.PaymentProofURL, j.PaymentMethod, j.PaidAt, j.Updated,
		j.ID, string(from))
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrStatusConflict
	}

	return nil
}

func (r *SQLiteRepo) SetJobConfirmed(ctx context.Context, id string, ts int64) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE jobs SET confirmed_at = ?, updated = ? WHERE id = ? AND status = ? AND confirmed_at IS NULL`,
		ts, now(), id, string(models.StatusPaid))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (r *SQLiteRepo) AddJobView(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `UPDATE jobs SET views = views + 1 WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) AdjustJobBookmarks(ctx context.Context, id string, delta int) error {
	_, err := r.conn.Exec(ctx, `UPDATE jobs SET bookmarks = MAX(0, bookmarks + ?) WHERE id = ?`, delta, id)
	return err
}

// scanJob works for both sql.Row and sql.Rows via their shared Scan shape.
func scanJob(scan func(dest ...any) error) (*models.Job, error) {
	var (
		j           models.Job
		category    string
		status      string
		tags        string
		images      string
		deadline    sql.NullInt64
		paidAt      sql.NullInt64
		confirmedAt sql.NullInt64
	)
	if err := scan(&j.ID, &j.AgentID, &j.Title, &j.Story, &j.WhatINeed, &j.WhyItMatters, &j.MyLimitation,
		&j.Budget, &deadline, &category, &tags, &images, &j.Views, &j.Bookmarks, &status, &j.WorkerID,
		&j.Submission, &j.SubmissionURL, &j.PaymentProofURL, &j.PaymentMethod,
		&j.DisputeReason, &j.DisputeProofURL, &paidAt, &confirmedAt, &j.Created, &j.Updated); err != nil {
		return nil, err
	}

	j.Category = models.JobCategory(category)
	j.Status = models.JobStatus(status)
	if deadline.Valid {
		j.Deadline = &deadline.Int64
	}
	if paidAt.Valid {
		j.PaidAt = &paidAt.Int64
	}
	if confirmedAt.Valid {
		j.ConfirmedAt = &confirmedAt.Int64
	}
	if err := json.Unmarshal([]byte(tags), &j.Tags); err != nil {
		return nil, fmt.Errorf("decode job tags: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &j.Images); err != nil {
		return nil, fmt.Errorf("decode job images: %w", err)
	}

	return &j, nil
}
