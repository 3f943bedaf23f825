package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
)

func (r *SQLiteRepo) CreateWorker(ctx context.Context, w *models.Worker) error {
	if w == nil {
		return fmt.Errorf("worker is nil")
	}
	if w.Created == 0 {
		w.Created = now()
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO workers (id, email, password_hash, name, bio, skills, jobs_completed, rating, rating_count, payment_methods, bookmarked_jobs, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Email, w.PasswordHash, w.Name, w.Bio,
		marshalJSON(w.Skills, "[]"), w.JobsCompleted, w.Rating, w.RatingCount,
		marshalJSON(w.PaymentMethods, "{}"), marshalJSON(w.BookmarkedJobs, "[]"), w.Created)
	return err
}

func (r *SQLiteRepo) WorkerByID(ctx context.Context, id string) (*models.Worker, error) {
	return r.scanWorker(r.conn.QueryRow(ctx, `SELECT id, email, password_hash, name, bio, skills, jobs_completed, rating, rating_count, payment_methods, bookmarked_jobs, created FROM workers WHERE id = ?`, id))
}

func (r *SQLiteRepo) WorkerByEmail(ctx context.Context, email string) (*models.Worker, error) {
	return r.scanWorker(r.conn.QueryRow(ctx, `SELECT id, email, password_hash, name, bio, skills, jobs_completed, rating, rating_count, payment_methods, bookmarked_jobs, created FROM workers WHERE email = ?`, email))
}

func (r *SQLiteRepo) scanWorker(row *sql.Row) (*models.Worker, error) {
	var (
		w         models.Worker
		skills    string
		methods   string
		bookmarks string
	)
	if err := row.Scan(&w.ID, &w.Email, &w.PasswordHash, &w.Name, &w.Bio, &skills, &w.JobsCompleted, &w.Rating, &w.RatingCount, &methods, &bookmarks, &w.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if err := json.Unmarshal([]byte(skills), &w.Skills); err != nil {
		return nil, fmt.Errorf("decode worker skills: %w", err)
	}
	if err := json.Unmarshal([]byte(methods), &w.PaymentMethods); err != nil {
		return nil, fmt.Errorf("decode worker payment methods: %w", err)
	}
	if err := json.Unmarshal([]byte(bookmarks), &w.BookmarkedJobs); err != nil {
		return nil, fmt.Errorf("decode worker bookmarks: %w", err)
	}

	return &w, nil
}

func (r *SQLiteRepo) UpdateWorker(ctx context.Context, w *models.Worker) error {
	if w == nil {
		return fmt.Errorf("worker is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE workers SET email = ?, password_hash = ?, name = ?, bio = ?, skills = ?, rating = ?, rating_count = ?, payment_methods = ?, bookmarked_jobs = ? WHERE id = ?`,
		w.Email, w.PasswordHash, w.Name, w.Bio,
		marshalJSON(w.Skills, "[]"), w.Rating, w.RatingCount,
		marshalJSON(w.PaymentMethods, "{}"), marshalJSON(w.BookmarkedJobs, "[]"), w.ID)
	return err
}

func (r *SQLiteRepo) AddWorkerCompleted(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `UPDATE workers SET jobs_completed = jobs_completed + 1 WHERE id = ?`, id)
	return err
}
