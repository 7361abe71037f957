package jobs

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"renderhub/internal/domain"
	"renderhub/internal/notify"
)

// Reconciler consumes terminal results from the compute bus and drives the job
// state machine plus the user notification fan-out. It is safe under
// at-least-once delivery: a redelivered event is refused by the state-machine
// guard and produces neither a change nor a second notification.
type Reconciler struct {
	jobs     *Service
	notifier notify.Notifier
	rewrite  notify.URLRewriter
	logger   zerolog.Logger
}

func NewReconciler(jobs *Service, notifier notify.Notifier, rewrite notify.URLRewriter, logger zerolog.Logger) *Reconciler {
	return &Reconciler{jobs: jobs, notifier: notifier, rewrite: rewrite, logger: logger}
}

// Handle processes one completion event. A non-nil return means a transient
// fault the broker should redeliver; every content-level anomaly is handled
// in place.
func (r *Reconciler) Handle(ctx context.Context, ev CompletionEvent) error {
	job, err := r.jobs.Get(ctx, ev.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn().Str("job_id", ev.JobID).Msg("reconciler: event for unknown job dropped")
			return nil
		}
		return err
	}

	switch {
	case ev.Status == EventCompleted && ev.OutputURL != "":
		err := r.jobs.Complete(ctx, ev.JobID, ev.OutputURL, ev.OutputURL, ev.ProcessingTimeMs)
		if errors.Is(err, domain.ErrDuplicateEvent) {
			return nil
		}
		if err != nil {
			return err
		}
		r.notifyBestEffort(ctx, job.UserID, ev.JobID, "JobCompleted", func(nctx context.Context) error {
			return r.notifier.JobCompleted(nctx, job.UserID, notify.JobEvent{
				JobID:            ev.JobID,
				Status:           EventCompleted,
				OutputURL:        r.rewrite.Rewrite(ev.OutputURL),
				ProcessingTimeMs: ev.ProcessingTimeMs,
			})
		})
		return nil

	case ev.Status == EventFailed:
		reason := ev.Error
		if reason == "" {
			reason = "processing failed"
		}
		err := r.jobs.Fail(ctx, ev.JobID, reason)
		if errors.Is(err, domain.ErrDuplicateEvent) {
			return nil
		}
		if err != nil {
			return err
		}
		r.notifyBestEffort(ctx, job.UserID, ev.JobID, "JobFailed", func(nctx context.Context) error {
			return r.notifier.JobFailed(nctx, job.UserID, notify.JobEvent{
				JobID:  ev.JobID,
				Status: EventFailed,
				Error:  reason,
			})
		})
		return nil
	}

	r.logger.Warn().
		Str("job_id", ev.JobID).
		Str("status", ev.Status).
		Str("output_url", ev.OutputURL).
		Msg("reconciler: unusable event ignored")
	return nil
}

// notifyBestEffort delivers a notification without letting a delivery failure
// undo or mask the already-committed state transition.
func (r *Reconciler) notifyBestEffort(ctx context.Context, userID, jobID, kind string, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		r.logger.Error().Err(err).
			Str("job_id", jobID).
			Str("user_id", userID).
			Msgf("reconciler: %s notification failed", kind)
	}
}
