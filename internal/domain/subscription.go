package domain

import "time"

// SubscriptionStatus enumerates subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription is a user's current billing plan instance. At most one ACTIVE
// subscription exists per user at any time.
type Subscription struct {
	ID              string
	UserID          string
	TierID          string
	StartDate       time.Time
	EndDate         time.Time
	AutoRenew       bool
	Status          SubscriptionStatus
	JobsUsedPeriod  int
	LastRenewalDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SubscriptionTier is near-immutable catalog data seeded at deployment.
// MaxJobsPerMonth of -1 means unlimited.
type SubscriptionTier struct {
	ID                   string
	Name                 string
	MonthlyPrice         int64
	MaxJobsPerMonth      int
	MaxResolution        string
	HasWatermark         bool
	QueuePriority        string
	SupportsLoRA         bool
	SupportsVoiceCloning bool
	IsActive             bool
}
