package domain

import "time"

// Wallet holds one user's balance. Balance is never negative and only the
// ledger service mutates it; every change is paired with exactly one
// Transaction row written in the same database transaction.
type Wallet struct {
	ID        string
	UserID    string
	Balance   int64
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionType enumerates ledger entry kinds.
type TransactionType string

const (
	TransactionDeposit TransactionType = "DEPOSIT"
	TransactionPayment TransactionType = "PAYMENT"
	TransactionRefund  TransactionType = "REFUND"
)

// Transaction is an immutable ledger entry. Amount is signed: deposits and
// refunds are positive, payments negative. BalanceBefore/BalanceAfter bracket
// the change so the history replays to the current balance.
type Transaction struct {
	ID            string
	WalletID      string
	Type          TransactionType
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Reference     string
	Description   string
	Status        string
	CreatedAt     time.Time
}
