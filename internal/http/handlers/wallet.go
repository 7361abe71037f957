package handlers

import (
	"errors"
	"net/http"
	"time"

	"renderhub/internal/domain"
)

type walletResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

type transactionResponse struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balanceBefore"`
	BalanceAfter  int64  `json:"balanceAfter"`
	Reference     string `json:"reference,omitempty"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
}

// WalletGet returns the caller's wallet, provisioning an empty one on first
// sight so the client never has to distinguish "no wallet" from "zero balance".
func (a *App) WalletGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}
	wallet, err := a.Ledger.CreateWallet(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load wallet")
		return
	}
	a.json(w, http.StatusOK, toWalletResponse(wallet))
}

func (a *App) WalletTransactions(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)

	items, err := a.Ledger.ListTransactions(r.Context(), userID, page, size)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Never having held funds is an empty history, not an error.
			a.json(w, http.StatusOK, map[string]any{"items": []transactionResponse{}})
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to list transactions")
		return
	}
	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, transactionResponse{
			ID:            t.ID,
			Type:          string(t.Type),
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Reference:     t.Reference,
			Description:   t.Description,
			Status:        t.Status,
			CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

func toWalletResponse(w *domain.Wallet) walletResponse {
	return walletResponse{ID: w.ID, UserID: w.UserID, Balance: w.Balance, Currency: w.Currency}
}
