package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"renderhub/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new render-job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, user_id, job_type, status, priority, input_payload, output_url, output_key,
error_message, processing_time_ms, created_at, updated_at, queued_at, started_at, completed_at`

// Create inserts a new job record in its initial state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.RenderJob) error {
	query := `
INSERT INTO render_jobs (id, user_id, job_type, status, priority, input_payload)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.JobType,
		job.Status,
		job.Priority,
		job.InputPayload,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.RenderJob, error) {
	query := `SELECT ` + jobColumns + ` FROM render_jobs WHERE id = $1;`
	row := r.pool.QueryRow(ctx, query, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByUser returns the user's jobs newest first.
func (r *JobRepositoryPG) ListByUser(ctx context.Context, userID string, page, size int) ([]domain.RenderJob, error) {
	if page < 1 {
		page = 1
	}
	query := `
SELECT ` + jobColumns + `
FROM render_jobs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.pool.Query(ctx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListByStatus returns jobs in the given status oldest first, for FIFO draining.
func (r *JobRepositoryPG) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.RenderJob, error) {
	query := `
SELECT ` + jobColumns + `
FROM render_jobs
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Transition applies a state change guarded by the job's current status. The
// guard lives in the WHERE clause so concurrent transitions on the same job
// cannot both pass it.
func (r *JobRepositoryPG) Transition(ctx context.Context, jobID string, from []domain.JobStatus, change domain.JobTransition) (bool, error) {
	query := `
UPDATE render_jobs
SET status = $2,
    updated_at = now(),
    output_url = COALESCE(NULLIF($3, ''), output_url),
    output_key = COALESCE(NULLIF($4, ''), output_key),
    error_message = COALESCE(NULLIF($5, ''), error_message),
    processing_time_ms = COALESCE($6, processing_time_ms),
    queued_at = CASE WHEN $7 THEN now() ELSE queued_at END,
    started_at = CASE WHEN $8 THEN now() ELSE started_at END,
    completed_at = CASE WHEN $9 THEN now() ELSE completed_at END
WHERE id = $1 AND status = ANY($10::text[]);
`
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	tag, err := r.pool.Exec(ctx, query,
		jobID,
		change.To,
		change.OutputURL,
		change.OutputKey,
		change.ErrorMessage,
		change.ProcessingTimeMs,
		change.StampQueued,
		change.StampStarted,
		change.StampCompleted,
		allowed,
	)
	if err != nil {
		return false, fmt.Errorf("transition job %s: %w", jobID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanJob(row pgx.Row) (*domain.RenderJob, error) {
	var job domain.RenderJob
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.JobType,
		&job.Status,
		&job.Priority,
		&job.InputPayload,
		&job.OutputURL,
		&job.OutputKey,
		&job.ErrorMessage,
		&job.ProcessingTimeMs,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.QueuedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.RenderJob, error) {
	var jobs []domain.RenderJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
