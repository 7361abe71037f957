package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"renderhub/internal/domain"
)

// Service owns the render-job state machine. It is the only writer of job
// status; transitions move forward only and terminal states are immutable.
type Service struct {
	repo   domain.JobRepository
	logger zerolog.Logger
}

func NewService(repo domain.JobRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create accepts a new unit of work in PENDING state.
func (s *Service) Create(ctx context.Context, userID string, jobType domain.JobType, priority string, payload []byte) (*domain.RenderJob, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidPayload, jobType)
	}
	if priority == "" {
		priority = "normal"
	}
	job := &domain.RenderJob{
		ID:           uuid.NewString(),
		UserID:       userID,
		JobType:      jobType,
		Status:       domain.JobStatusPending,
		Priority:     priority,
		InputPayload: payload,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Get fetches one job.
func (s *Service) Get(ctx context.Context, jobID string) (*domain.RenderJob, error) {
	return s.repo.GetByID(ctx, jobID)
}

// ListByUser returns the user's jobs newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, page, size int) ([]domain.RenderJob, error) {
	return s.repo.ListByUser(ctx, userID, page, size)
}

// ListByStatus returns jobs in one status oldest first.
func (s *Service) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.RenderJob, error) {
	return s.repo.ListByStatus(ctx, status, limit)
}

// MarkQueued records that the job request was handed to the bus.
func (s *Service) MarkQueued(ctx context.Context, jobID string) error {
	return s.transition(ctx, jobID,
		[]domain.JobStatus{domain.JobStatusPending},
		domain.JobTransition{To: domain.JobStatusQueued, StampQueued: true})
}

// MarkStarted records that a compute worker picked the job up.
func (s *Service) MarkStarted(ctx context.Context, jobID string) error {
	return s.transition(ctx, jobID,
		[]domain.JobStatus{domain.JobStatusPending, domain.JobStatusQueued},
		domain.JobTransition{To: domain.JobStatusProcessing, StampStarted: true})
}

// Complete moves the job to its COMPLETED terminal state.
func (s *Service) Complete(ctx context.Context, jobID, outputURL, outputKey string, processingTimeMs int64) error {
	return s.transition(ctx, jobID,
		[]domain.JobStatus{domain.JobStatusQueued, domain.JobStatusProcessing},
		domain.JobTransition{
			To:               domain.JobStatusCompleted,
			OutputURL:        outputURL,
			OutputKey:        outputKey,
			ProcessingTimeMs: &processingTimeMs,
			StampCompleted:   true,
		})
}

// Fail moves the job to its FAILED terminal state.
func (s *Service) Fail(ctx context.Context, jobID, errMsg string) error {
	return s.transition(ctx, jobID,
		[]domain.JobStatus{domain.JobStatusQueued, domain.JobStatusProcessing},
		domain.JobTransition{
			To:             domain.JobStatusFailed,
			ErrorMessage:   errMsg,
			StampCompleted: true,
		})
}

// transition applies a guarded state change. A change refused by the guard on
// an existing job means a redelivered or out-of-order event: it is logged and
// reported as domain.ErrDuplicateEvent so consumers can ignore it without a
// second notification.
func (s *Service) transition(ctx context.Context, jobID string, from []domain.JobStatus, change domain.JobTransition) error {
	ok, err := s.repo.Transition(ctx, jobID, from, change)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	s.logger.Warn().
		Str("job_id", jobID).
		Str("status", string(job.Status)).
		Str("attempted", string(change.To)).
		Msg("jobs: transition refused, event discarded")
	return domain.ErrDuplicateEvent
}
