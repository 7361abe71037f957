package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"renderhub/internal/domain"
)

type createJobRequest struct {
	JobType  string          `json:"jobType"`
	Priority string          `json:"priority"`
	Payload  json.RawMessage `json:"payload"`
}

type jobResponse struct {
	ID               string  `json:"id"`
	UserID           string  `json:"userId"`
	JobType          string  `json:"jobType"`
	Status           string  `json:"status"`
	Priority         string  `json:"priority"`
	OutputURL        string  `json:"outputUrl,omitempty"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
	ProcessingTimeMs *int64  `json:"processingTimeMs,omitempty"`
	CreatedAt        string  `json:"createdAt"`
	QueuedAt         *string `json:"queuedAt,omitempty"`
	StartedAt        *string `json:"startedAt,omitempty"`
	CompletedAt      *string `json:"completedAt,omitempty"`
}

// JobsCreate accepts a render job, publishes its request to the bus and marks
// it queued. Publish failures leave the job PENDING: a job is never QUEUED
// unless its request is confirmed on the bus.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	job, err := a.Jobs.Create(r.Context(), userID, domain.JobType(req.JobType), req.Priority, req.Payload)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPayload) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	if err := a.Dispatcher.Publish(r.Context(), job); err != nil {
		if errors.Is(err, domain.ErrInvalidPayload) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("api: job request publish failed")
		a.error(w, http.StatusBadGateway, "publish_failed", "job accepted but could not be dispatched")
		return
	}

	if err := a.Jobs.MarkQueued(r.Context(), job.ID); err != nil && !errors.Is(err, domain.ErrDuplicateEvent) {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("api: mark queued failed")
	}

	a.countUsage(r.Context(), userID)

	fresh, err := a.Jobs.Get(r.Context(), job.ID)
	if err != nil {
		fresh = job
	}
	a.json(w, http.StatusCreated, toJobResponse(fresh))
}

func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

func (a *App) JobsListMine(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 10)

	items, err := a.Jobs.ListByUser(r.Context(), userID, page, size)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	out := make([]jobResponse, 0, len(items))
	for i := range items {
		out = append(out, toJobResponse(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

func (a *App) JobsListByStatus(w http.ResponseWriter, r *http.Request) {
	status := domain.JobStatus(chi.URLParam(r, "status"))
	limit := queryInt(r, "limit", 50)

	items, err := a.Jobs.ListByStatus(r.Context(), status, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	out := make([]jobResponse, 0, len(items))
	for i := range items {
		out = append(out, toJobResponse(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

// countUsage ticks the per-period job counter on the user's active
// subscription. Best effort: users without a subscription render pay-per-job
// and there is nothing to count.
func (a *App) countUsage(ctx context.Context, userID string) {
	sub, err := a.Subs.GetActiveByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Err(err).Str("user_id", userID).Msg("api: subscription lookup failed")
		}
		return
	}
	if err := a.Subs.IncrementUsage(ctx, sub.ID); err != nil {
		a.Logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("api: usage increment failed")
	}
}

func toJobResponse(job *domain.RenderJob) jobResponse {
	resp := jobResponse{
		ID:               job.ID,
		UserID:           job.UserID,
		JobType:          string(job.JobType),
		Status:           string(job.Status),
		Priority:         job.Priority,
		OutputURL:        job.OutputURL,
		ErrorMessage:     job.ErrorMessage,
		ProcessingTimeMs: job.ProcessingTimeMs,
		CreatedAt:        job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.QueuedAt != nil {
		s := job.QueuedAt.UTC().Format(time.RFC3339)
		resp.QueuedAt = &s
	}
	if job.StartedAt != nil {
		s := job.StartedAt.UTC().Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if job.CompletedAt != nil {
		s := job.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}
