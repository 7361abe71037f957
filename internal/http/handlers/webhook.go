package handlers

import (
	"encoding/json"
	"net/http"

	"renderhub/internal/payment"
)

// PaymentWebhook receives bank transfer notifications from the payment
// provider. Anything short of a logging failure is acknowledged with 200 so
// the provider stops retrying; the outcome message says what happened.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var hook payment.Webhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid webhook body")
		return
	}

	msg, err := a.Ingestor.Ingest(r.Context(), hook)
	if err != nil {
		a.Logger.Error().Err(err).Msg("api: webhook ingest failed")
		a.error(w, http.StatusInternalServerError, "internal", "webhook could not be recorded")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}
