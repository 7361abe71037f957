package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"renderhub/internal/domain"
)

// WebhookRepositoryPG implements domain.WebhookRepository.
type WebhookRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewWebhookRepository creates a new webhook log repository backed by PostgreSQL.
func NewWebhookRepository(pool *pgxpool.Pool) *WebhookRepositoryPG {
	return &WebhookRepositoryPG{pool: pool}
}

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// Insert records an inbound webhook before any side effect. The unique index
// on transaction_id turns a provider retry into domain.ErrDuplicateEvent.
func (r *WebhookRepositoryPG) Insert(ctx context.Context, log *domain.WebhookLog) error {
	query := `
INSERT INTO webhook_logs (id, transaction_id, raw_payload, amount, description, status)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.TransactionID,
		log.RawPayload,
		log.Amount,
		log.Description,
		log.Status,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

// GetByTransactionID fetches the log recorded for one provider transaction.
func (r *WebhookRepositoryPG) GetByTransactionID(ctx context.Context, transactionID string) (*domain.WebhookLog, error) {
	query := `
SELECT id, transaction_id, raw_payload, amount, description, processed_user_id, status, error_message, received_at, processed_at
FROM webhook_logs
WHERE transaction_id = $1;
`
	var log domain.WebhookLog
	err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&log.ID,
		&log.TransactionID,
		&log.RawPayload,
		&log.Amount,
		&log.Description,
		&log.ProcessedUserID,
		&log.Status,
		&log.ErrorMessage,
		&log.ReceivedAt,
		&log.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// MarkProcessed stamps the log PROCESSED with the resolved user.
func (r *WebhookRepositoryPG) MarkProcessed(ctx context.Context, logID, userID string) error {
	query := `
UPDATE webhook_logs
SET status = 'PROCESSED', processed_user_id = $2, processed_at = now()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, logID, userID)
	return err
}

// MarkFailed stamps the log FAILED with the failure reason.
func (r *WebhookRepositoryPG) MarkFailed(ctx context.Context, logID, reason string) error {
	query := `
UPDATE webhook_logs
SET status = 'FAILED', error_message = $2, processed_at = now()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, logID, reason)
	return err
}
