package domain

import (
	"context"
	"time"
)

// JobTransition describes one state-machine step applied to a render job.
type JobTransition struct {
	To               JobStatus
	OutputURL        string
	OutputKey        string
	ErrorMessage     string
	ProcessingTimeMs *int64
	StampQueued      bool
	StampStarted     bool
	StampCompleted   bool
}

// JobRepository persists render jobs. Transition is the only mutation path so
// the forward-only state machine can be enforced at the storage boundary.
type JobRepository interface {
	Create(ctx context.Context, job *RenderJob) error
	GetByID(ctx context.Context, jobID string) (*RenderJob, error)
	ListByUser(ctx context.Context, userID string, page, size int) ([]RenderJob, error)
	ListByStatus(ctx context.Context, status JobStatus, limit int) ([]RenderJob, error)
	// Transition applies change only while the job's current status is one of
	// from, and reports whether a row was updated. The check and the update
	// must be one atomic statement so the guard holds under concurrency.
	Transition(ctx context.Context, jobID string, from []JobStatus, change JobTransition) (bool, error)
}

// WalletRepository persists wallets and their append-only transaction history.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID string) (*Wallet, error)
	// Create inserts a zero-balance wallet for the user if none exists and
	// returns the wallet either way.
	Create(ctx context.Context, userID string) (*Wallet, error)
	// Apply runs fn with the wallet row exclusively locked. fn receives the
	// current wallet state and returns the ledger entry to append; the new
	// balance is the entry's BalanceAfter. The balance update and the entry
	// insert commit atomically, or not at all when fn returns an error.
	Apply(ctx context.Context, userID string, createIfMissing bool, fn func(w *Wallet) (*Transaction, error)) (*Wallet, error)
	ListTransactions(ctx context.Context, userID string, page, size int) ([]Transaction, error)
}

// SubscriptionRepository persists subscriptions and the tier catalog.
type SubscriptionRepository interface {
	GetTier(ctx context.Context, tierID string) (*SubscriptionTier, error)
	ListTiers(ctx context.Context) ([]SubscriptionTier, error)
	UpsertTier(ctx context.Context, tier *SubscriptionTier) error

	GetActiveByUser(ctx context.Context, userID string) (*Subscription, error)
	// ListRenewalsDue returns ACTIVE auto-renew subscriptions with an end date
	// on or before asOf.
	ListRenewalsDue(ctx context.Context, asOf time.Time) ([]Subscription, error)
	Create(ctx context.Context, sub *Subscription) error
	// CancelActive replaces any ACTIVE subscription of the user with status
	// CANCELLED so at most one ACTIVE row exists per user.
	CancelActive(ctx context.Context, userID string) error
	// DisableAutoRenew turns off auto-renew on the user's ACTIVE subscription
	// without ending the current period.
	DisableAutoRenew(ctx context.Context, userID string) error
	// Renew extends the subscription to newEnd, resets the usage counter and
	// stamps the renewal time. Renewing to the same newEnd twice is a no-op.
	Renew(ctx context.Context, subscriptionID string, newEnd, at time.Time) error
	Expire(ctx context.Context, subscriptionID string) error
	IncrementUsage(ctx context.Context, subscriptionID string) error
}

// WebhookRepository persists the payment webhook audit/idempotency log.
type WebhookRepository interface {
	// Insert records the webhook before any side effect. It returns
	// ErrDuplicateEvent when the provider transaction id was already logged.
	Insert(ctx context.Context, log *WebhookLog) error
	GetByTransactionID(ctx context.Context, transactionID string) (*WebhookLog, error)
	MarkProcessed(ctx context.Context, logID, userID string) error
	MarkFailed(ctx context.Context, logID, reason string) error
}
