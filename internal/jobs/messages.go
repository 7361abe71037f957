package jobs

import "time"

// Message kinds carried on the job-request queue. All five variants share the
// one queue; consumers fan out on the envelope kind.
const (
	KindTalkingHead    = "talking_head_request"
	KindVirtualTryOn   = "virtual_tryon_request"
	KindImageToVideo   = "image_to_video_request"
	KindMotionTransfer = "motion_transfer_request"
	KindFaceSwap       = "face_swap_request"
)

// KindCompletion is the envelope kind compute workers publish on the event
// queue when a job reaches a terminal state.
const KindCompletion = "job_completion_event"

// TalkingHeadRequest animates a still portrait with a driving audio track.
type TalkingHeadRequest struct {
	JobID            string    `json:"jobId"`
	UserID           string    `json:"userId"`
	SourceImageURL   string    `json:"sourceImageUrl"`
	AudioURL         string    `json:"audioUrl"`
	Priority         string    `json:"priority"`
	OutputResolution string    `json:"outputResolution"`
	AddWatermark     bool      `json:"addWatermark"`
	CreatedAt        time.Time `json:"createdAt"`
}

// VirtualTryOnRequest renders a garment onto a model image.
type VirtualTryOnRequest struct {
	JobID            string    `json:"jobId"`
	UserID           string    `json:"userId"`
	ModelImageURL    string    `json:"modelImageUrl"`
	GarmentImageURL  string    `json:"garmentImageUrl"`
	Priority         string    `json:"priority"`
	OutputResolution string    `json:"outputResolution"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ImageToVideoRequest animates a single source image.
type ImageToVideoRequest struct {
	JobID            string    `json:"jobId"`
	UserID           string    `json:"userId"`
	SourceImageURL   string    `json:"sourceImageUrl"`
	Priority         string    `json:"priority"`
	OutputResolution string    `json:"outputResolution"`
	CreatedAt        time.Time `json:"createdAt"`
}

// MotionTransferRequest drives a source image with a skeleton video.
type MotionTransferRequest struct {
	JobID            string    `json:"jobId"`
	UserID           string    `json:"userId"`
	SourceImageURL   string    `json:"sourceImageUrl"`
	SkeletonVideoURL string    `json:"skeletonVideoUrl"`
	Priority         string    `json:"priority"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FaceSwapRequest swaps a target face into a source video.
type FaceSwapRequest struct {
	JobID          string    `json:"jobId"`
	UserID         string    `json:"userId"`
	SourceVideoURL string    `json:"sourceVideoUrl"`
	TargetFaceURL  string    `json:"targetFaceUrl"`
	Priority       string    `json:"priority"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CompletionEvent is the inbound terminal result reported by a compute worker.
type CompletionEvent struct {
	JobID            string    `json:"jobId"`
	Status           string    `json:"status"`
	OutputURL        string    `json:"outputUrl,omitempty"`
	Error            string    `json:"error,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	CompletedAt      time.Time `json:"completedAt"`
}

// Completion event status values.
const (
	EventCompleted = "COMPLETED"
	EventFailed    = "FAILED"
)
