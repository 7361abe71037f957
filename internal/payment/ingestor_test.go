package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"renderhub/internal/domain"
)

type fakeWebhookRepo struct {
	byTxID    map[string]*domain.WebhookLog
	byID      map[string]*domain.WebhookLog
	insertErr error
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{
		byTxID: make(map[string]*domain.WebhookLog),
		byID:   make(map[string]*domain.WebhookLog),
	}
}

func (f *fakeWebhookRepo) Insert(_ context.Context, log *domain.WebhookLog) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.byTxID[log.TransactionID]; ok {
		return domain.ErrDuplicateEvent
	}
	cp := *log
	f.byTxID[log.TransactionID] = &cp
	f.byID[log.ID] = &cp
	return nil
}

func (f *fakeWebhookRepo) GetByTransactionID(_ context.Context, transactionID string) (*domain.WebhookLog, error) {
	entry, ok := f.byTxID[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (f *fakeWebhookRepo) MarkProcessed(_ context.Context, logID, userID string) error {
	entry, ok := f.byID[logID]
	if !ok {
		return domain.ErrNotFound
	}
	entry.Status = domain.WebhookProcessed
	entry.ProcessedUserID = userID
	return nil
}

func (f *fakeWebhookRepo) MarkFailed(_ context.Context, logID, reason string) error {
	entry, ok := f.byID[logID]
	if !ok {
		return domain.ErrNotFound
	}
	entry.Status = domain.WebhookFailed
	entry.ErrorMessage = reason
	return nil
}

type fakeTopUpLedger struct {
	calls []struct {
		userID string
		amount int64
	}
	err     error
	errOnce error
}

func (f *fakeTopUpLedger) TopUp(_ context.Context, userID string, amount int64, _, _ string) (*domain.Wallet, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.errOnce != nil {
		err := f.errOnce
		f.errOnce = nil
		return nil, err
	}
	f.calls = append(f.calls, struct {
		userID string
		amount int64
	}{userID, amount})
	return &domain.Wallet{UserID: userID, Balance: amount}, nil
}

const testUserID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

func validHook() Webhook {
	return Webhook{
		ID:             90001,
		Gateway:        "MBBank",
		Content:        "RENDERHUB " + testUserID + " nap tien",
		TransferType:   "in",
		TransferAmount: decimal.NewFromInt(500_000),
		ReferenceCode:  "FT26081234",
	}
}

func newTestIngestor() (*Ingestor, *fakeWebhookRepo, *fakeTopUpLedger) {
	logs := newFakeWebhookRepo()
	ledger := &fakeTopUpLedger{}
	return NewIngestor(logs, ledger, "RENDERHUB", zerolog.Nop()), logs, ledger
}

func TestIngestCreditsWalletAndMarksProcessed(t *testing.T) {
	ing, logs, ledger := newTestIngestor()

	msg, err := ing.Ingest(context.Background(), validHook())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if msg != "processed" {
		t.Fatalf("unexpected outcome %q", msg)
	}
	if len(ledger.calls) != 1 || ledger.calls[0].userID != testUserID || ledger.calls[0].amount != 500_000 {
		t.Fatalf("wrong top-up: %+v", ledger.calls)
	}
	entry := logs.byTxID["90001"]
	if entry.Status != domain.WebhookProcessed || entry.ProcessedUserID != testUserID {
		t.Fatalf("log not marked processed: %+v", entry)
	}
}

func TestIngestDuplicateIsAcknowledgedWithoutSecondCredit(t *testing.T) {
	ing, _, ledger := newTestIngestor()
	hook := validHook()

	if _, err := ing.Ingest(context.Background(), hook); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	msg, err := ing.Ingest(context.Background(), hook)
	if err != nil {
		t.Fatalf("duplicate must be acknowledged, got %v", err)
	}
	if !strings.Contains(msg, "duplicate") {
		t.Fatalf("unexpected outcome %q", msg)
	}
	if len(ledger.calls) != 1 {
		t.Fatalf("duplicate credited the wallet again: %d calls", len(ledger.calls))
	}
}

func TestIngestRejectsContentWithoutPrefix(t *testing.T) {
	ing, logs, ledger := newTestIngestor()
	hook := validHook()
	hook.Content = "unrelated transfer " + testUserID

	msg, err := ing.Ingest(context.Background(), hook)
	if err != nil {
		t.Fatalf("content failure must be acknowledged, got %v", err)
	}
	if !strings.HasPrefix(msg, "ignored:") {
		t.Fatalf("unexpected outcome %q", msg)
	}
	if len(ledger.calls) != 0 {
		t.Fatal("rejected webhook credited a wallet")
	}
	if logs.byTxID["90001"].Status != domain.WebhookFailed {
		t.Fatalf("log not marked failed: %s", logs.byTxID["90001"].Status)
	}
}

func TestIngestRejectsContentWithoutUserID(t *testing.T) {
	ing, logs, _ := newTestIngestor()
	hook := validHook()
	hook.Content = "RENDERHUB nap tien khong co ma"

	msg, err := ing.Ingest(context.Background(), hook)
	if err != nil {
		t.Fatalf("content failure must be acknowledged, got %v", err)
	}
	if !strings.HasPrefix(msg, "ignored:") {
		t.Fatalf("unexpected outcome %q", msg)
	}
	if logs.byTxID["90001"].Status != domain.WebhookFailed {
		t.Fatal("log not marked failed")
	}
}

func TestIngestPrefixMatchIsCaseInsensitive(t *testing.T) {
	ing, _, ledger := newTestIngestor()
	hook := validHook()
	hook.Content = "renderhub " + testUserID

	if _, err := ing.Ingest(context.Background(), hook); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(ledger.calls) != 1 {
		t.Fatal("lower-case prefix not accepted")
	}
}

func TestIngestTransientTopUpFailurePropagates(t *testing.T) {
	ing, logs, ledger := newTestIngestor()
	ledger.err = errors.New("connection refused")

	if _, err := ing.Ingest(context.Background(), validHook()); err == nil {
		t.Fatal("infrastructure fault must surface so the provider retries")
	}
	if logs.byTxID["90001"].Status != domain.WebhookReceived {
		t.Fatalf("log must stay RECEIVED for the retry, got %s", logs.byTxID["90001"].Status)
	}
}

func TestIngestRetryAfterTransientFailureCreditsOnce(t *testing.T) {
	ing, logs, ledger := newTestIngestor()
	ledger.errOnce = errors.New("connection refused")
	hook := validHook()

	if _, err := ing.Ingest(context.Background(), hook); err == nil {
		t.Fatal("first delivery must fail transiently")
	}
	if len(ledger.calls) != 0 {
		t.Fatalf("failed delivery credited the wallet: %d calls", len(ledger.calls))
	}

	msg, err := ing.Ingest(context.Background(), hook)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if msg != "processed" {
		t.Fatalf("retry outcome %q", msg)
	}
	if len(ledger.calls) != 1 || ledger.calls[0].amount != 500_000 {
		t.Fatalf("retry did not credit exactly once: %+v", ledger.calls)
	}
	entry := logs.byTxID["90001"]
	if entry.Status != domain.WebhookProcessed || entry.ProcessedUserID != testUserID {
		t.Fatalf("retry did not finish the log: %+v", entry)
	}
}

func TestIngestRedeliveryOfFailedLogIsAcknowledged(t *testing.T) {
	ing, _, ledger := newTestIngestor()
	hook := validHook()
	hook.Content = "unrelated transfer"

	if _, err := ing.Ingest(context.Background(), hook); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	msg, err := ing.Ingest(context.Background(), hook)
	if err != nil {
		t.Fatalf("redelivery of a FAILED log must be acknowledged, got %v", err)
	}
	if !strings.Contains(msg, "duplicate") {
		t.Fatalf("unexpected outcome %q", msg)
	}
	if len(ledger.calls) != 0 {
		t.Fatal("rejected payload credited a wallet on redelivery")
	}
}

func TestIngestLoggingFailurePropagates(t *testing.T) {
	ing, logs, ledger := newTestIngestor()
	logs.insertErr = errors.New("db unavailable")

	if _, err := ing.Ingest(context.Background(), validHook()); err == nil {
		t.Fatal("unlogged webhook must be retried by the provider")
	}
	if len(ledger.calls) != 0 {
		t.Fatal("unlogged webhook credited a wallet")
	}
}

func TestIngestTruncatesFractionalAmount(t *testing.T) {
	ing, logs, _ := newTestIngestor()
	hook := validHook()
	hook.TransferAmount = decimal.RequireFromString("500000.75")

	if _, err := ing.Ingest(context.Background(), hook); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if logs.byTxID["90001"].Amount != 500_000 {
		t.Fatalf("expected whole-unit amount 500000, got %d", logs.byTxID["90001"].Amount)
	}
}
