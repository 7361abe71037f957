package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"renderhub/internal/domain"
)

// SubscriptionRepositoryPG implements domain.SubscriptionRepository.
type SubscriptionRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository backed by PostgreSQL.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepositoryPG {
	return &SubscriptionRepositoryPG{pool: pool}
}

const tierColumns = `id, name, monthly_price, max_jobs_per_month, max_resolution, has_watermark,
queue_priority, supports_lora, supports_voice_cloning, is_active`

const subscriptionColumns = `id, user_id, tier_id, start_date, end_date, auto_renew, status,
jobs_used_period, last_renewal_date, created_at, updated_at`

// GetTier fetches one catalog tier.
func (r *SubscriptionRepositoryPG) GetTier(ctx context.Context, tierID string) (*domain.SubscriptionTier, error) {
	query := `SELECT ` + tierColumns + ` FROM subscription_tiers WHERE id = $1;`
	tier, err := scanTier(r.pool.QueryRow(ctx, query, tierID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return tier, nil
}

// ListTiers returns active catalog tiers cheapest first.
func (r *SubscriptionRepositoryPG) ListTiers(ctx context.Context) ([]domain.SubscriptionTier, error) {
	query := `SELECT ` + tierColumns + ` FROM subscription_tiers WHERE is_active ORDER BY monthly_price ASC;`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []domain.SubscriptionTier
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *tier)
	}
	return tiers, rows.Err()
}

// UpsertTier inserts or refreshes one catalog tier. Used at deployment time.
func (r *SubscriptionRepositoryPG) UpsertTier(ctx context.Context, tier *domain.SubscriptionTier) error {
	query := `
INSERT INTO subscription_tiers (id, name, monthly_price, max_jobs_per_month, max_resolution, has_watermark, queue_priority, supports_lora, supports_voice_cloning, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    monthly_price = EXCLUDED.monthly_price,
    max_jobs_per_month = EXCLUDED.max_jobs_per_month,
    max_resolution = EXCLUDED.max_resolution,
    has_watermark = EXCLUDED.has_watermark,
    queue_priority = EXCLUDED.queue_priority,
    supports_lora = EXCLUDED.supports_lora,
    supports_voice_cloning = EXCLUDED.supports_voice_cloning,
    is_active = EXCLUDED.is_active;
`
	_, err := r.pool.Exec(ctx, query,
		tier.ID,
		tier.Name,
		tier.MonthlyPrice,
		tier.MaxJobsPerMonth,
		tier.MaxResolution,
		tier.HasWatermark,
		tier.QueuePriority,
		tier.SupportsLoRA,
		tier.SupportsVoiceCloning,
		tier.IsActive,
	)
	return err
}

// GetActiveByUser fetches the user's current ACTIVE subscription.
func (r *SubscriptionRepositoryPG) GetActiveByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE user_id = $1 AND status = 'ACTIVE'
ORDER BY end_date DESC
LIMIT 1;
`
	sub, err := scanSubscription(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

// ListRenewalsDue returns ACTIVE auto-renew subscriptions ending on or before asOf.
func (r *SubscriptionRepositoryPG) ListRenewalsDue(ctx context.Context, asOf time.Time) ([]domain.Subscription, error) {
	query := `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE end_date::date <= $1::date AND auto_renew AND status = 'ACTIVE'
ORDER BY end_date ASC;
`
	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// Create inserts a new subscription record.
func (r *SubscriptionRepositoryPG) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
INSERT INTO subscriptions (id, user_id, tier_id, start_date, end_date, auto_renew, status, jobs_used_period, last_renewal_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.UserID,
		sub.TierID,
		sub.StartDate,
		sub.EndDate,
		sub.AutoRenew,
		sub.Status,
		sub.JobsUsedPeriod,
		sub.LastRenewalDate,
	)
	return err
}

// CancelActive marks the user's ACTIVE subscription CANCELLED, preserving the
// at-most-one-ACTIVE-per-user invariant before a new subscription is created.
func (r *SubscriptionRepositoryPG) CancelActive(ctx context.Context, userID string) error {
	query := `
UPDATE subscriptions
SET status = 'CANCELLED', auto_renew = false, updated_at = now()
WHERE user_id = $1 AND status = 'ACTIVE';
`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// DisableAutoRenew turns off auto-renew; the current period keeps running.
func (r *SubscriptionRepositoryPG) DisableAutoRenew(ctx context.Context, userID string) error {
	query := `
UPDATE subscriptions
SET auto_renew = false, updated_at = now()
WHERE user_id = $1 AND status = 'ACTIVE';
`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Renew extends the subscription and resets the usage counter. The end_date
// guard makes a replay of the same renewal a no-op.
func (r *SubscriptionRepositoryPG) Renew(ctx context.Context, subscriptionID string, newEnd, at time.Time) error {
	query := `
UPDATE subscriptions
SET end_date = $2, last_renewal_date = $3, jobs_used_period = 0, status = 'ACTIVE', updated_at = now()
WHERE id = $1 AND end_date < $2;
`
	tag, err := r.pool.Exec(ctx, query, subscriptionID, newEnd, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
	}
	return nil
}

// Expire marks the subscription EXPIRED.
func (r *SubscriptionRepositoryPG) Expire(ctx context.Context, subscriptionID string) error {
	query := `UPDATE subscriptions SET status = 'EXPIRED', updated_at = now() WHERE id = $1;`
	tag, err := r.pool.Exec(ctx, query, subscriptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementUsage bumps the jobs-used counter for the current period.
func (r *SubscriptionRepositoryPG) IncrementUsage(ctx context.Context, subscriptionID string) error {
	query := `UPDATE subscriptions SET jobs_used_period = jobs_used_period + 1, updated_at = now() WHERE id = $1;`
	_, err := r.pool.Exec(ctx, query, subscriptionID)
	return err
}

func (r *SubscriptionRepositoryPG) exists(ctx context.Context, subscriptionID string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1);`, subscriptionID).Scan(&found)
	return found, err
}

func scanTier(row pgx.Row) (*domain.SubscriptionTier, error) {
	var t domain.SubscriptionTier
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.MonthlyPrice,
		&t.MaxJobsPerMonth,
		&t.MaxResolution,
		&t.HasWatermark,
		&t.QueuePriority,
		&t.SupportsLoRA,
		&t.SupportsVoiceCloning,
		&t.IsActive,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TierID,
		&s.StartDate,
		&s.EndDate,
		&s.AutoRenew,
		&s.Status,
		&s.JobsUsedPeriod,
		&s.LastRenewalDate,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
