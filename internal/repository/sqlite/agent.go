package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
)

func (r *SQLiteRepo) CreateAgent(ctx context.Context, a *models.Agent) error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	if a.Created == 0 {
		a.Created = now()
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO agents (id, api_key, name, personality, bio, avatar_url, jobs_posted, jobs_completed, reputation, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.APIKey, a.Name, a.Personality, a.Bio, a.AvatarURL, a.JobsPosted, a.JobsCompleted, a.Reputation, a.Created)
	return err
}

func (r *SQLiteRepo) AgentByID(ctx context.Context, id string) (*models.Agent, error) {
	return r.scanAgent(r.conn.QueryRow(ctx, `SELECT id, api_key, name, personality, bio, avatar_url, jobs_posted, jobs_completed, reputation, created FROM agents WHERE id = ?`, id))
}

func (r *SQLiteRepo) AgentByAPIKey(ctx context.Context, apiKey string) (*models.Agent, error) {
	return r.scanAgent(r.conn.QueryRow(ctx, `SELECT id, api_key, name, personality, bio, avatar_url, jobs_posted, jobs_completed, reputation, created FROM agents WHERE api_key = ?`, apiKey))
}

func (r *SQLiteRepo) scanAgent(row *sql.Row) (*models.Agent, error) {
	var a models.Agent
	if err := row.Scan(&a.ID, &a.APIKey, &a.Name, &a.Personality, &a.Bio, &a.AvatarURL, &a.JobsPosted, &a.JobsCompleted, &a.Reputation, &a.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &a, nil
}

func (r *SQLiteRepo) UpdateAgent(ctx context.Context, a *models.Agent) error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE agents SET name = ?, personality = ?, bio = ?, avatar_url = ? WHERE id = ?`,
		a.Name, a.Personality, a.Bio, a.AvatarURL, a.ID)
	return err
}

func (r *SQLiteRepo) AddAgentStats(ctx context.Context, id string, posted, completed, reputation int) error {
	_, err := r.conn.Exec(ctx, `UPDATE agents SET jobs_posted = jobs_posted + ?, jobs_completed = jobs_completed + ?, reputation = reputation + ? WHERE id = ?`,
		posted, completed, reputation, id)
	return err
}
