package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"renderhub/internal/domain"
)

type tierResponse struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	MonthlyPrice         int64  `json:"monthlyPrice"`
	MaxJobsPerMonth      int    `json:"maxJobsPerMonth"`
	MaxResolution        string `json:"maxResolution"`
	HasWatermark         bool   `json:"hasWatermark"`
	QueuePriority        string `json:"queuePriority"`
	SupportsLoRA         bool   `json:"supportsLora"`
	SupportsVoiceCloning bool   `json:"supportsVoiceCloning"`
}

type subscriptionResponse struct {
	ID             string `json:"id"`
	TierID         string `json:"tierId"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	AutoRenew      bool   `json:"autoRenew"`
	Status         string `json:"status"`
	JobsUsedPeriod int    `json:"jobsUsedPeriod"`
}

func (a *App) TiersList(w http.ResponseWriter, r *http.Request) {
	tiers, err := a.Subs.ListTiers(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list tiers")
		return
	}
	out := make([]tierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, tierResponse{
			ID:                   t.ID,
			Name:                 t.Name,
			MonthlyPrice:         t.MonthlyPrice,
			MaxJobsPerMonth:      t.MaxJobsPerMonth,
			MaxResolution:        t.MaxResolution,
			HasWatermark:         t.HasWatermark,
			QueuePriority:        t.QueuePriority,
			SupportsLoRA:         t.SupportsLoRA,
			SupportsVoiceCloning: t.SupportsVoiceCloning,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

type subscribeRequest struct {
	TierID string `json:"tierId"`
}

// SubscriptionsCreate starts a 30-day subscription on the chosen tier. Any
// previous ACTIVE subscription is cancelled first so at most one exists.
func (a *App) SubscriptionsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TierID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "tierId is required")
		return
	}

	tier, err := a.Subs.GetTier(r.Context(), req.TierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "tier not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load tier")
		return
	}
	if !tier.IsActive {
		a.error(w, http.StatusBadRequest, "bad_request", "tier is no longer offered")
		return
	}

	if err := a.Subs.CancelActive(r.Context(), userID); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to replace current subscription")
		return
	}

	now := time.Now().UTC()
	sub := &domain.Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		TierID:    tier.ID,
		StartDate: now,
		EndDate:   now.Add(30 * 24 * time.Hour),
		AutoRenew: true,
		Status:    domain.SubscriptionActive,
	}
	if err := a.Subs.Create(r.Context(), sub); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to create subscription")
		return
	}
	a.json(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// SubscriptionsCancel turns off auto-renew; the paid period keeps running
// until its end date.
func (a *App) SubscriptionsCancel(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}
	if err := a.Subs.DisableAutoRenew(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no active subscription")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to cancel subscription")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

func (a *App) SubscriptionsGetActive(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}
	sub, err := a.Subs.GetActiveByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no active subscription")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load subscription")
		return
	}
	a.json(w, http.StatusOK, toSubscriptionResponse(sub))
}

func toSubscriptionResponse(s *domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:             s.ID,
		TierID:         s.TierID,
		StartDate:      s.StartDate.UTC().Format(time.RFC3339),
		EndDate:        s.EndDate.UTC().Format(time.RFC3339),
		AutoRenew:      s.AutoRenew,
		Status:         string(s.Status),
		JobsUsedPeriod: s.JobsUsedPeriod,
	}
}
