package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"renderhub/internal/domain"
)

// Webhook mirrors the payment provider's notification body. Amounts arrive as
// decimal JSON numbers and are parsed exactly before conversion to whole VND.
type Webhook struct {
	ID              int64           `json:"id"`
	Gateway         string          `json:"gateway"`
	TransactionDate string          `json:"transactionDate"`
	AccountNumber   string          `json:"accountNumber"`
	Content         string          `json:"content"`
	TransferType    string          `json:"transferType"`
	TransferAmount  decimal.Decimal `json:"transferAmount"`
	Accumulated     decimal.Decimal `json:"accumulated"`
	ReferenceCode   string          `json:"referenceCode"`
	Description     string          `json:"description"`
}

// Ledger is the slice of the wallet ledger the ingestor needs.
type Ledger interface {
	TopUp(ctx context.Context, userID string, amount int64, reference, description string) (*domain.Wallet, error)
}

var userIDPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// Ingestor turns inbound payment webhooks into wallet top-ups. Every webhook
// is logged before any side effect; the unique provider transaction id makes
// provider retries idempotent.
type Ingestor struct {
	logs   domain.WebhookRepository
	ledger Ledger
	prefix string
	logger zerolog.Logger
}

func NewIngestor(logs domain.WebhookRepository, ledger Ledger, prefix string, logger zerolog.Logger) *Ingestor {
	return &Ingestor{logs: logs, ledger: ledger, prefix: prefix, logger: logger}
}

// Ingest processes one webhook. The returned message describes the outcome for
// the acknowledging response; a non-nil error means a transient fault (the log
// write or the wallet credit) and the provider should retry. Content-level
// problems (wrong prefix, no user id, bad amount) are recorded as FAILED and
// acknowledged so the provider does not retry a payload that can never
// succeed. A retried transaction id whose log is still RECEIVED is
// reprocessed; any other status is acknowledged as a duplicate.
func (i *Ingestor) Ingest(ctx context.Context, hook Webhook) (string, error) {
	raw, err := json.Marshal(hook)
	if err != nil {
		return "", fmt.Errorf("marshal webhook payload: %w", err)
	}

	entry := &domain.WebhookLog{
		ID:            uuid.NewString(),
		TransactionID: strconv.FormatInt(hook.ID, 10),
		RawPayload:    raw,
		Amount:        hook.TransferAmount.IntPart(),
		Description:   hook.Content,
		Status:        domain.WebhookReceived,
	}
	if err := i.logs.Insert(ctx, entry); err != nil {
		if !errors.Is(err, domain.ErrDuplicateEvent) {
			return "", fmt.Errorf("log webhook: %w", err)
		}
		prior, gerr := i.logs.GetByTransactionID(ctx, entry.TransactionID)
		if gerr != nil {
			return "", fmt.Errorf("load webhook log: %w", gerr)
		}
		if prior.Status != domain.WebhookReceived {
			i.logger.Info().Str("transaction_id", prior.TransactionID).Msg("payment: duplicate webhook acknowledged")
			return "duplicate transaction, already handled", nil
		}
		// The earlier delivery was logged but never credited; pick up where
		// it left off.
		i.logger.Info().Str("transaction_id", prior.TransactionID).Msg("payment: retrying unfinished webhook")
		entry = prior
	}

	if !strings.Contains(strings.ToUpper(hook.Content), strings.ToUpper(i.prefix)) {
		return i.reject(ctx, entry, "content does not contain valid prefix")
	}

	match := userIDPattern.FindString(hook.Content)
	if match == "" {
		return i.reject(ctx, entry, "could not extract user id from content")
	}
	userID, err := uuid.Parse(match)
	if err != nil {
		return i.reject(ctx, entry, "invalid user id format")
	}

	reference := hook.ReferenceCode
	if reference == "" {
		reference = entry.TransactionID
	}
	description := hook.Description
	if description == "" {
		description = hook.Content
	}

	if _, err := i.ledger.TopUp(ctx, userID.String(), entry.Amount, reference, description); err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			return i.reject(ctx, entry, err.Error())
		}
		// Infrastructure fault: the log stays RECEIVED so the provider's
		// retry runs the credit again instead of being deduped away.
		i.logger.Error().Err(err).
			Str("transaction_id", entry.TransactionID).
			Str("user_id", userID.String()).
			Msg("payment: top-up failed, awaiting provider retry")
		return "", fmt.Errorf("credit wallet: %w", err)
	}

	if err := i.logs.MarkProcessed(ctx, entry.ID, userID.String()); err != nil {
		// The money is already credited; a stale log status is an audit
		// blemish, not a reason to make the provider retry.
		i.logger.Error().Err(err).Str("transaction_id", entry.TransactionID).Msg("payment: mark processed failed")
	}

	i.logger.Info().
		Str("transaction_id", entry.TransactionID).
		Str("user_id", userID.String()).
		Int64("amount", entry.Amount).
		Msg("payment: webhook processed")
	return "processed", nil
}

func (i *Ingestor) reject(ctx context.Context, entry *domain.WebhookLog, reason string) (string, error) {
	if err := i.logs.MarkFailed(ctx, entry.ID, reason); err != nil {
		i.logger.Error().Err(err).Str("transaction_id", entry.TransactionID).Msg("payment: mark failed failed")
	}
	i.logger.Warn().
		Str("transaction_id", entry.TransactionID).
		Str("reason", reason).
		Msg("payment: webhook rejected")
	return "ignored: " + reason, nil
}
