package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"renderhub/internal/domain"
)

// WalletRepositoryPG implements domain.WalletRepository. Wallet mutations run
// inside one database transaction with the wallet row locked, so per-wallet
// writes are serialized and the balance/history pairing is atomic.
type WalletRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new wallet repository backed by PostgreSQL.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepositoryPG {
	return &WalletRepositoryPG{pool: pool}
}

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

// GetByUserID fetches the user's wallet.
func (r *WalletRepositoryPG) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1;`
	wallet, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return wallet, nil
}

// Create inserts a zero-balance wallet unless one already exists, and returns
// the wallet either way.
func (r *WalletRepositoryPG) Create(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `
INSERT INTO wallets (id, user_id, balance, currency)
VALUES ($1, $2, 0, 'VND')
ON CONFLICT (user_id) DO NOTHING;
`
	if _, err := r.pool.Exec(ctx, query, uuid.NewString(), userID); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return r.GetByUserID(ctx, userID)
}

// Apply runs fn with the wallet row locked and commits the balance update and
// the new ledger entry together.
func (r *WalletRepositoryPG) Apply(ctx context.Context, userID string, createIfMissing bool, fn func(w *domain.Wallet) (*domain.Transaction, error)) (*domain.Wallet, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin wallet mutation: %w", err)
	}
	defer tx.Rollback(ctx)

	wallet, err := lockWallet(ctx, tx, userID)
	if errors.Is(err, domain.ErrNotFound) && createIfMissing {
		insert := `
INSERT INTO wallets (id, user_id, balance, currency)
VALUES ($1, $2, 0, 'VND')
ON CONFLICT (user_id) DO NOTHING;
`
		if _, err = tx.Exec(ctx, insert, uuid.NewString(), userID); err != nil {
			return nil, fmt.Errorf("create wallet: %w", err)
		}
		wallet, err = lockWallet(ctx, tx, userID)
	}
	if err != nil {
		return nil, err
	}

	entry, err := fn(wallet)
	if err != nil {
		return nil, err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.WalletID = wallet.ID

	update := `UPDATE wallets SET balance = $2, updated_at = now() WHERE id = $1;`
	if _, err := tx.Exec(ctx, update, wallet.ID, entry.BalanceAfter); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	insert := `
INSERT INTO transactions (id, wallet_id, type, amount, balance_before, balance_after, reference, description, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	if _, err := tx.Exec(ctx, insert,
		entry.ID,
		entry.WalletID,
		entry.Type,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Reference,
		entry.Description,
		entry.Status,
	); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit wallet mutation: %w", err)
	}

	wallet.Balance = entry.BalanceAfter
	return wallet, nil
}

// ListTransactions returns the wallet's ledger entries newest first.
func (r *WalletRepositoryPG) ListTransactions(ctx context.Context, userID string, page, size int) ([]domain.Transaction, error) {
	if page < 1 {
		page = 1
	}
	query := `
SELECT t.id, t.wallet_id, t.type, t.amount, t.balance_before, t.balance_after, t.reference, t.description, t.status, t.created_at
FROM transactions t
JOIN wallets w ON w.id = t.wallet_id
WHERE w.user_id = $1
ORDER BY t.created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.pool.Query(ctx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.WalletID,
			&t.Type,
			&t.Amount,
			&t.BalanceBefore,
			&t.BalanceAfter,
			&t.Reference,
			&t.Description,
			&t.Status,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

func lockWallet(ctx context.Context, tx pgx.Tx, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE;`
	wallet, err := scanWallet(tx.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return wallet, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}
