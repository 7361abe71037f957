package domain

import "time"

// JobType enumerates the closed set of render task categories.
type JobType string

const (
	JobTypeTalkingHead    JobType = "TALKING_HEAD"
	JobTypeVirtualTryOn   JobType = "VIRTUAL_TRYON"
	JobTypeImageToVideo   JobType = "IMAGE_TO_VIDEO"
	JobTypeMotionTransfer JobType = "MOTION_TRANSFER"
	JobTypeFaceSwap       JobType = "FACE_SWAP"
)

// Valid reports whether t is one of the supported job types.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeTalkingHead, JobTypeVirtualTryOn, JobTypeImageToVideo, JobTypeMotionTransfer, JobTypeFaceSwap:
		return true
	}
	return false
}

// JobStatus enumerates render job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further transitions are permitted from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// RenderJob is one unit of requested render work. Status only advances
// Pending -> Queued -> Processing -> Completed|Failed; jobs are never deleted.
type RenderJob struct {
	ID               string
	UserID           string
	JobType          JobType
	Status           JobStatus
	Priority         string
	InputPayload     []byte
	OutputURL        string
	OutputKey        string
	ErrorMessage     string
	ProcessingTimeMs *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	QueuedAt         *time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
}
