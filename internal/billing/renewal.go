package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"renderhub/internal/domain"
)

const renewalPeriod = 30 * 24 * time.Hour

// Ledger is the slice of the wallet ledger the renewal run needs.
type Ledger interface {
	GetBalance(ctx context.Context, userID string) (*domain.Wallet, error)
	Deduct(ctx context.Context, userID string, amount int64, description string) (*domain.Wallet, error)
	Refund(ctx context.Context, userID string, amount int64, reference, description string) (*domain.Wallet, error)
}

// InsufficientBalancePolicy decides what happens to a due subscription whose
// wallet cannot cover the tier price. The default expires it immediately;
// a grace-period variant can be swapped in without touching the run loop.
type InsufficientBalancePolicy func(ctx context.Context, subs domain.SubscriptionRepository, sub domain.Subscription) error

// ExpireImmediately is the default policy: no grace period, no retry window.
func ExpireImmediately(ctx context.Context, subs domain.SubscriptionRepository, sub domain.Subscription) error {
	return subs.Expire(ctx, sub.ID)
}

// Renewer runs the daily subscription renewal pass.
type Renewer struct {
	subs   domain.SubscriptionRepository
	ledger Ledger
	policy InsufficientBalancePolicy
	logger zerolog.Logger
}

func NewRenewer(subs domain.SubscriptionRepository, ledger Ledger, policy InsufficientBalancePolicy, logger zerolog.Logger) *Renewer {
	if policy == nil {
		policy = ExpireImmediately
	}
	return &Renewer{subs: subs, ledger: ledger, policy: policy, logger: logger}
}

// RunOnce processes every subscription due for renewal as of asOf. Items are
// handled independently; one failure is logged and never aborts the batch.
// It returns the number of subscriptions examined.
func (r *Renewer) RunOnce(ctx context.Context, asOf time.Time) (int, error) {
	due, err := r.subs.ListRenewalsDue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list renewals due: %w", err)
	}

	renewed, expired := 0, 0
	for _, sub := range due {
		outcome, err := r.processOne(ctx, asOf, sub)
		if err != nil {
			r.logger.Error().Err(err).
				Str("subscription_id", sub.ID).
				Str("user_id", sub.UserID).
				Msg("billing: renewal failed")
			continue
		}
		switch outcome {
		case outcomeRenewed:
			renewed++
		case outcomeExpired:
			expired++
		}
	}

	r.logger.Info().
		Int("processed", len(due)).
		Int("renewed", renewed).
		Int("expired", expired).
		Msg("billing: renewal run finished")
	return len(due), nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRenewed
	outcomeExpired
)

func (r *Renewer) processOne(ctx context.Context, asOf time.Time, sub domain.Subscription) (outcome, error) {
	tier, err := r.subs.GetTier(ctx, sub.TierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn().Str("subscription_id", sub.ID).Str("tier_id", sub.TierID).Msg("billing: tier missing, skipped")
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}

	wallet, err := r.ledger.GetBalance(ctx, sub.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn().Str("subscription_id", sub.ID).Str("user_id", sub.UserID).Msg("billing: wallet missing, skipped")
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}

	if wallet.Balance < tier.MonthlyPrice {
		if err := r.policy(ctx, r.subs, sub); err != nil {
			return outcomeSkipped, fmt.Errorf("apply insufficient-balance policy: %w", err)
		}
		r.logger.Warn().
			Str("subscription_id", sub.ID).
			Str("user_id", sub.UserID).
			Int64("required", tier.MonthlyPrice).
			Int64("balance", wallet.Balance).
			Msg("billing: insufficient balance")
		return outcomeExpired, nil
	}

	if _, err := r.ledger.Deduct(ctx, sub.UserID, tier.MonthlyPrice, "Auto-renewal: "+tier.Name); err != nil {
		// The balance check above is only advisory; the deduct re-checks
		// under the wallet lock and may still come up short.
		if errors.Is(err, domain.ErrInsufficientFunds) {
			if perr := r.policy(ctx, r.subs, sub); perr != nil {
				return outcomeSkipped, fmt.Errorf("apply insufficient-balance policy: %w", perr)
			}
			return outcomeExpired, nil
		}
		return outcomeSkipped, fmt.Errorf("deduct renewal charge: %w", err)
	}

	newEnd := sub.EndDate.Add(renewalPeriod)
	if err := r.subs.Renew(ctx, sub.ID, newEnd, asOf); err != nil {
		// Money left the wallet but the period was not extended; put the
		// charge back so the next run can retry cleanly.
		if _, rerr := r.ledger.Refund(ctx, sub.UserID, tier.MonthlyPrice, sub.ID, "Renewal reversal: "+tier.Name); rerr != nil {
			r.logger.Error().Err(rerr).
				Str("subscription_id", sub.ID).
				Str("user_id", sub.UserID).
				Int64("amount", tier.MonthlyPrice).
				Msg("billing: compensation refund failed, manual reconciliation required")
		}
		return outcomeSkipped, fmt.Errorf("extend subscription: %w", err)
	}

	r.logger.Info().
		Str("subscription_id", sub.ID).
		Str("user_id", sub.UserID).
		Time("new_end", newEnd).
		Msg("billing: subscription renewed")
	return outcomeRenewed, nil
}
