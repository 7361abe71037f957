package domain

import "time"

// WebhookStatus enumerates processing states of an inbound payment webhook.
type WebhookStatus string

const (
	WebhookReceived  WebhookStatus = "RECEIVED"
	WebhookProcessed WebhookStatus = "PROCESSED"
	WebhookFailed    WebhookStatus = "FAILED"
)

// WebhookLog is the append-only audit and idempotency record of one inbound
// payment notification. TransactionID is the provider's id and is unique; a
// second delivery of the same id is acknowledged without reprocessing.
type WebhookLog struct {
	ID              string
	TransactionID   string
	RawPayload      []byte
	Amount          int64
	Description     string
	ProcessedUserID string
	Status          WebhookStatus
	ErrorMessage    string
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
}
