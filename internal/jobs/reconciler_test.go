package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"renderhub/internal/domain"
	"renderhub/internal/notify"
)

type fakeNotifier struct {
	completed []notify.JobEvent
	failed    []notify.JobEvent
	err       error
}

func (f *fakeNotifier) JobCompleted(_ context.Context, _ string, ev notify.JobEvent) error {
	if f.err != nil {
		return f.err
	}
	f.completed = append(f.completed, ev)
	return nil
}

func (f *fakeNotifier) JobFailed(_ context.Context, _ string, ev notify.JobEvent) error {
	if f.err != nil {
		return f.err
	}
	f.failed = append(f.failed, ev)
	return nil
}

func newTestReconciler(notifier *fakeNotifier) (*Reconciler, *Service, *fakeJobRepo) {
	svc, repo := newTestService()
	rec := NewReconciler(svc, notifier,
		notify.NewURLRewriter("http://minio:9000", "https://cdn.renderhub.vn"), zerolog.Nop())
	return rec, svc, repo
}

func queuedJob(t *testing.T, svc *Service) *domain.RenderJob {
	t.Helper()
	job, err := svc.Create(context.Background(), "user-1", domain.JobTypeTalkingHead, "", []byte(`{}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.MarkQueued(context.Background(), job.ID); err != nil {
		t.Fatalf("mark queued: %v", err)
	}
	return job
}

func TestHandleCompletionTransitionsAndNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	rec, svc, repo := newTestReconciler(notifier)
	job := queuedJob(t, svc)

	ev := CompletionEvent{
		JobID:            job.ID,
		Status:           EventCompleted,
		OutputURL:        "http://minio:9000/outputs/a.mp4",
		ProcessingTimeMs: 9000,
	}
	if err := rec.Handle(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
	if len(notifier.completed) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.completed))
	}
	if notifier.completed[0].OutputURL != "https://cdn.renderhub.vn/outputs/a.mp4" {
		t.Fatalf("output url not rewritten: %q", notifier.completed[0].OutputURL)
	}
}

func TestHandleRedeliveryDoesNotNotifyTwice(t *testing.T) {
	notifier := &fakeNotifier{}
	rec, svc, _ := newTestReconciler(notifier)
	job := queuedJob(t, svc)

	ev := CompletionEvent{JobID: job.ID, Status: EventCompleted, OutputURL: "http://minio:9000/a.mp4"}
	if err := rec.Handle(context.Background(), ev); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := rec.Handle(context.Background(), ev); err != nil {
		t.Fatalf("redelivery must be acknowledged, got %v", err)
	}
	if len(notifier.completed) != 1 {
		t.Fatalf("redelivery caused %d notifications", len(notifier.completed))
	}
}

func TestHandleFailureUsesDefaultReason(t *testing.T) {
	notifier := &fakeNotifier{}
	rec, svc, repo := newTestReconciler(notifier)
	job := queuedJob(t, svc)

	if err := rec.Handle(context.Background(), CompletionEvent{JobID: job.ID, Status: EventFailed}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if got.ErrorMessage != "processing failed" {
		t.Fatalf("default reason not applied: %q", got.ErrorMessage)
	}
	if len(notifier.failed) != 1 || notifier.failed[0].Error != "processing failed" {
		t.Fatalf("failure notification missing or wrong: %+v", notifier.failed)
	}
}

func TestHandleUnknownJobIsDropped(t *testing.T) {
	rec, _, _ := newTestReconciler(&fakeNotifier{})
	ev := CompletionEvent{JobID: "ghost", Status: EventCompleted, OutputURL: "http://minio:9000/a.mp4"}
	if err := rec.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unknown job must be acknowledged, got %v", err)
	}
}

func TestHandleCompletionWithoutOutputURLIsIgnored(t *testing.T) {
	notifier := &fakeNotifier{}
	rec, svc, repo := newTestReconciler(notifier)
	job := queuedJob(t, svc)

	if err := rec.Handle(context.Background(), CompletionEvent{JobID: job.ID, Status: EventCompleted}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.JobStatusQueued {
		t.Fatalf("unusable event changed status to %s", got.Status)
	}
	if len(notifier.completed) != 0 {
		t.Fatal("unusable event must not notify")
	}
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("gateway offline")}
	rec, svc, repo := newTestReconciler(notifier)
	job := queuedJob(t, svc)

	ev := CompletionEvent{JobID: job.ID, Status: EventCompleted, OutputURL: "http://minio:9000/a.mp4"}
	if err := rec.Handle(context.Background(), ev); err != nil {
		t.Fatalf("notification failure leaked: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("transition lost: %s", got.Status)
	}
}
