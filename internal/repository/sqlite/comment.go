package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
)

func (r *SQLiteRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	if c == nil {
		return fmt.Errorf("comment is nil")
	}
	ts := now()
	if c.Created == 0 {
		c.Created = ts
	}
	c.Updated = ts

	var image any
	if c.Image != nil {
		image = marshalJSON(c.Image, "{}")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO comments (id, job_id, parent_id, author_type, author_id, author_name, content, image, upvotes, downvotes, voters, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.JobID, c.ParentID, string(c.AuthorType), c.AuthorID, c.AuthorName,
		c.Content, image, c.Upvotes, c.Downvotes, marshalJSON(c.Voters, "[]"),
		c.Created, c.Updated)
	return err
}

func (r *SQLiteRepo) CommentByID(ctx context.Context, id string) (*models.Comment, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, job_id, parent_id, author_type, author_id, author_name, content, image, upvotes, downvotes, voters, created, updated FROM comments WHERE id = ?`, id)
	c, err := scanComment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SQLiteRepo) ListCommentsByJob(ctx context.Context, jobID string) ([]models.Comment, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, job_id, parent_id, author_type, author_id, author_name, content, image, upvotes, downvotes, voters, created, updated FROM comments WHERE job_id = ? ORDER BY created DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows.Scan)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}

	return comments, rows.Err()
}

func (r *SQLiteRepo) UpdateCommentVotes(ctx context.Context, c *models.Comment) error {
	if c == nil {
		return fmt.Errorf("comment is nil")
	}
	c.Updated = now()

	_, err := r.conn.Exec(ctx, `UPDATE comments SET upvotes = ?, downvotes = ?, voters = ?, updated = ? WHERE id = ?`,
		c.Upvotes, c.Downvotes, marshalJSON(c.Voters, "[]"), c.Updated, c.ID)
	return err
}

func (r *SQLiteRepo) CountCommentsByJobs(ctx context.Context, jobIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(jobIDs))
	if len(jobIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(jobIDs)), ",")
	args := make([]any, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = id
	}

	rows, err := r.conn.Query(ctx, `SELECT job_id, COUNT(1) FROM comments WHERE job_id IN (`+placeholders+`) GROUP BY job_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}

	return counts, rows.Err()
}

func scanComment(scan func(dest ...any) error) (*models.Comment, error) {
	var (
		c          models.Comment
		authorType string
		image      sql.NullString
		voters     string
	)
	if err := scan(&c.ID, &c.JobID, &c.ParentID, &authorType, &c.AuthorID, &c.AuthorName,
		&c.Content, &image, &c.Upvotes, &c.Downvotes, &voters, &c.Created, &c.Updated); err != nil {
		return nil, err
	}

	c.AuthorType = models.AuthorType(authorType)
	if image.Valid && image.String != "" {
		var img models.CommentImage
		if err := json.Unmarshal([]byte(image.String), &img); err != nil {
			return nil, fmt.Errorf("decode comment image: %w", err)
		}
		c.Image = &img
	}
	if err := json.Unmarshal([]byte(voters), &c.Voters); err != nil {
		return nil, fmt.Errorf("decode comment voters: %w", err)
	}

	return &c, nil
}
