package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediaforge/internal/domain"
)

// Archive persists terminal task outcomes to PostgreSQL so history survives
// restarts. The live orchestration state stays in memory; this is a sink,
// never read back into the result store.
type Archive struct {
	pool *pgxpool.Pool
}

// ArchivedTask is one historical row.
type ArchivedTask struct {
	ID          string    `json:"id"`
	RemoteJobID string    `json:"remote_job_id"`
	Status      string    `json:"status"`
	Prompt      string    `json:"prompt"`
	Mode        string    `json:"mode"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Cost        int       `json:"cost"`
	Refunded    bool      `json:"refunded"`
	ResultURL   string    `json:"result_url"`
	CreatedAt   time.Time `json:"created_at"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// New creates an archive backed by PostgreSQL.
func New(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// EnsureSchema creates the archive table when it does not exist yet.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS task_archive (
    id            TEXT PRIMARY KEY,
    remote_job_id TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    prompt        TEXT NOT NULL DEFAULT '',
    mode          TEXT NOT NULL DEFAULT '',
    provider      TEXT NOT NULL DEFAULT '',
    model         TEXT NOT NULL DEFAULT '',
    cost          INTEGER NOT NULL DEFAULT 0,
    refunded      BOOLEAN NOT NULL DEFAULT FALSE,
    result_url    TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    archived_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	if _, err := a.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("archive: ensure schema: %w", err)
	}
	return nil
}

// RecordTerminal upserts a task's terminal outcome. A retried task that
// fails again overwrites its earlier row.
func (a *Archive) RecordTerminal(ctx context.Context, task domain.GenerationTask) error {
	query := `
INSERT INTO task_archive (id, remote_job_id, status, prompt, mode, provider, model, cost, refunded, result_url, created_at, archived_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
ON CONFLICT (id) DO UPDATE
SET remote_job_id = EXCLUDED.remote_job_id,
    status        = EXCLUDED.status,
    refunded      = EXCLUDED.refunded,
    result_url    = EXCLUDED.result_url,
    archived_at   = NOW();
`
	_, err := a.pool.Exec(ctx, query,
		task.ID,
		task.RemoteJobID,
		string(task.Status),
		task.Spec.Prompt,
		task.Spec.Mode,
		task.Engine.Provider,
		task.Engine.Model,
		task.Cost,
		task.Refunded,
		task.ResultURL,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive: record terminal task: %w", err)
	}
	return nil
}

// Recent returns the most recently archived outcomes, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]ArchivedTask, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, remote_job_id, status, prompt, mode, provider, model, cost, refunded, result_url, created_at, archived_at
FROM task_archive
ORDER BY archived_at DESC
LIMIT $1;
`
	rows, err := a.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: query recent: %w", err)
	}
	defer rows.Close()

	var out []ArchivedTask
	for rows.Next() {
		var t ArchivedTask
		if err := rows.Scan(
			&t.ID,
			&t.RemoteJobID,
			&t.Status,
			&t.Prompt,
			&t.Mode,
			&t.Provider,
			&t.Model,
			&t.Cost,
			&t.Refunded,
			&t.ResultURL,
			&t.CreatedAt,
			&t.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("archive: scan row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate rows: %w", err)
	}
	return out, nil
}
