package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"renderhub/internal/domain"
)

const entryStatusCompleted = "COMPLETED"

// Service is the sole authority over wallet balances. Every mutation appends
// exactly one transaction row in the same atomic unit as the balance change,
// so the balance always equals the sum of all transaction deltas and never
// goes negative.
type Service struct {
	wallets domain.WalletRepository
	logger  zerolog.Logger
}

func NewService(wallets domain.WalletRepository, logger zerolog.Logger) *Service {
	return &Service{wallets: wallets, logger: logger}
}

// GetBalance fetches the user's wallet, or domain.ErrNotFound if the user has
// never held funds.
func (s *Service) GetBalance(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.wallets.GetByUserID(ctx, userID)
}

// CreateWallet provisions a zero-balance wallet. Idempotent: a second call for
// the same user returns the existing wallet untouched.
func (s *Service) CreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.wallets.Create(ctx, userID)
}

// TopUp credits the wallet, creating it lazily on first deposit.
func (s *Service) TopUp(ctx context.Context, userID string, amount int64, reference, description string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	wallet, err := s.wallets.Apply(ctx, userID, true, func(w *domain.Wallet) (*domain.Transaction, error) {
		return &domain.Transaction{
			Type:          domain.TransactionDeposit,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance + amount,
			Reference:     reference,
			Description:   description,
			Status:        entryStatusCompleted,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("top up wallet of %s: %w", userID, err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Int64("amount", amount).
		Int64("balance", wallet.Balance).
		Msg("ledger: deposit recorded")
	return wallet, nil
}

// Deduct debits the wallet. The balance check runs under the same row lock as
// the write, so concurrent deducts can never drive the balance negative; a
// shortfall returns domain.ErrInsufficientFunds with nothing recorded.
func (s *Service) Deduct(ctx context.Context, userID string, amount int64, description string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	wallet, err := s.wallets.Apply(ctx, userID, false, func(w *domain.Wallet) (*domain.Transaction, error) {
		if w.Balance < amount {
			return nil, domain.ErrInsufficientFunds
		}
		return &domain.Transaction{
			Type:          domain.TransactionPayment,
			Amount:        -amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance - amount,
			Description:   description,
			Status:        entryStatusCompleted,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", userID).
		Int64("amount", amount).
		Int64("balance", wallet.Balance).
		Msg("ledger: payment recorded")
	return wallet, nil
}

// Refund returns previously deducted funds as a REFUND-typed credit. The
// wallet must already exist.
func (s *Service) Refund(ctx context.Context, userID string, amount int64, reference, description string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	wallet, err := s.wallets.Apply(ctx, userID, false, func(w *domain.Wallet) (*domain.Transaction, error) {
		return &domain.Transaction{
			Type:          domain.TransactionRefund,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance + amount,
			Reference:     reference,
			Description:   description,
			Status:        entryStatusCompleted,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("refund wallet of %s: %w", userID, err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Int64("amount", amount).
		Int64("balance", wallet.Balance).
		Msg("ledger: refund recorded")
	return wallet, nil
}

// ListTransactions returns the wallet history newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string, page, size int) ([]domain.Transaction, error) {
	return s.wallets.ListTransactions(ctx, userID, page, size)
}
