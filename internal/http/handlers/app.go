package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"renderhub/internal/domain"
	"renderhub/internal/jobs"
	"renderhub/internal/ledger"
	"renderhub/internal/payment"
)

// App bundles the services the HTTP surface exposes.
type App struct {
	Jobs       *jobs.Service
	Dispatcher *jobs.Dispatcher
	Ledger     *ledger.Service
	Subs       domain.SubscriptionRepository
	Ingestor   *payment.Ingestor
	Logger     zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, map[string]any{"error": kind, "message": msg})
}

// currentUserID resolves the authenticated user. Authentication itself is an
// upstream concern; the gateway injects the identity header.
func (a *App) currentUserID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
