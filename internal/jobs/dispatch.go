package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"renderhub/internal/domain"
)

const defaultResolution = "720p"

// Publisher pushes a typed message onto the job-request queue.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any) error
}

// Dispatcher translates a job's opaque input payload into the typed outbound
// message for its job type and publishes it. A payload that does not carry the
// required fields for its type is rejected as domain.ErrInvalidPayload before
// anything is published.
type Dispatcher struct {
	pub    Publisher
	logger zerolog.Logger
}

func NewDispatcher(pub Publisher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, logger: logger}
}

// Input payload shapes, one per job type.

type talkingHeadPayload struct {
	SourceImageURL   string `json:"sourceImageUrl"`
	AudioURL         string `json:"audioUrl"`
	OutputResolution string `json:"outputResolution"`
	AddWatermark     *bool  `json:"addWatermark"`
}

type virtualTryOnPayload struct {
	ModelImageURL    string `json:"modelImageUrl"`
	GarmentImageURL  string `json:"garmentImageUrl"`
	OutputResolution string `json:"outputResolution"`
}

type imageToVideoPayload struct {
	SourceImageURL   string `json:"sourceImageUrl"`
	OutputResolution string `json:"outputResolution"`
}

type motionTransferPayload struct {
	SourceImageURL   string `json:"sourceImageUrl"`
	SkeletonVideoURL string `json:"skeletonVideoUrl"`
}

type faceSwapPayload struct {
	SourceVideoURL string `json:"sourceVideoUrl"`
	TargetFaceURL  string `json:"targetFaceUrl"`
}

// Publish builds and publishes the outbound message for job. The caller marks
// the job QUEUED only after Publish returns nil, so a broker failure leaves
// the job PENDING rather than falsely in flight.
func (d *Dispatcher) Publish(ctx context.Context, job *domain.RenderJob) error {
	kind, msg, err := d.translate(job)
	if err != nil {
		return err
	}
	if err := d.pub.Publish(ctx, kind, msg); err != nil {
		return fmt.Errorf("publish %s for job %s: %w", kind, job.ID, err)
	}
	d.logger.Info().
		Str("job_id", job.ID).
		Str("kind", kind).
		Msg("jobs: request published")
	return nil
}

func (d *Dispatcher) translate(job *domain.RenderJob) (string, any, error) {
	now := time.Now().UTC()
	switch job.JobType {
	case domain.JobTypeTalkingHead:
		var p talkingHeadPayload
		if err := decodePayload(job.InputPayload, &p); err != nil {
			return "", nil, err
		}
		if p.SourceImageURL == "" || p.AudioURL == "" {
			return "", nil, fmt.Errorf("%w: talking head requires sourceImageUrl and audioUrl", domain.ErrInvalidPayload)
		}
		watermark := true
		if p.AddWatermark != nil {
			watermark = *p.AddWatermark
		}
		return KindTalkingHead, TalkingHeadRequest{
			JobID:            job.ID,
			UserID:           job.UserID,
			SourceImageURL:   p.SourceImageURL,
			AudioURL:         p.AudioURL,
			Priority:         job.Priority,
			OutputResolution: resolutionOrDefault(p.OutputResolution),
			AddWatermark:     watermark,
			CreatedAt:        now,
		}, nil

	case domain.JobTypeVirtualTryOn:
		var p virtualTryOnPayload
		if err := decodePayload(job.InputPayload, &p); err != nil {
			return "", nil, err
		}
		if p.ModelImageURL == "" || p.GarmentImageURL == "" {
			return "", nil, fmt.Errorf("%w: virtual try-on requires modelImageUrl and garmentImageUrl", domain.ErrInvalidPayload)
		}
		return KindVirtualTryOn, VirtualTryOnRequest{
			JobID:            job.ID,
			UserID:           job.UserID,
			ModelImageURL:    p.ModelImageURL,
			GarmentImageURL:  p.GarmentImageURL,
			Priority:         job.Priority,
			OutputResolution: resolutionOrDefault(p.OutputResolution),
			CreatedAt:        now,
		}, nil

	case domain.JobTypeImageToVideo:
		var p imageToVideoPayload
		if err := decodePayload(job.InputPayload, &p); err != nil {
			return "", nil, err
		}
		if p.SourceImageURL == "" {
			return "", nil, fmt.Errorf("%w: image-to-video requires sourceImageUrl", domain.ErrInvalidPayload)
		}
		return KindImageToVideo, ImageToVideoRequest{
			JobID:            job.ID,
			UserID:           job.UserID,
			SourceImageURL:   p.SourceImageURL,
			Priority:         job.Priority,
			OutputResolution: resolutionOrDefault(p.OutputResolution),
			CreatedAt:        now,
		}, nil

	case domain.JobTypeMotionTransfer:
		var p motionTransferPayload
		if err := decodePayload(job.InputPayload, &p); err != nil {
			return "", nil, err
		}
		if p.SourceImageURL == "" || p.SkeletonVideoURL == "" {
			return "", nil, fmt.Errorf("%w: motion transfer requires sourceImageUrl and skeletonVideoUrl", domain.ErrInvalidPayload)
		}
		return KindMotionTransfer, MotionTransferRequest{
			JobID:            job.ID,
			UserID:           job.UserID,
			SourceImageURL:   p.SourceImageURL,
			SkeletonVideoURL: p.SkeletonVideoURL,
			Priority:         job.Priority,
			CreatedAt:        now,
		}, nil

	case domain.JobTypeFaceSwap:
		var p faceSwapPayload
		if err := decodePayload(job.InputPayload, &p); err != nil {
			return "", nil, err
		}
		if p.SourceVideoURL == "" || p.TargetFaceURL == "" {
			return "", nil, fmt.Errorf("%w: face swap requires sourceVideoUrl and targetFaceUrl", domain.ErrInvalidPayload)
		}
		return KindFaceSwap, FaceSwapRequest{
			JobID:          job.ID,
			UserID:         job.UserID,
			SourceVideoURL: p.SourceVideoURL,
			TargetFaceURL:  p.TargetFaceURL,
			Priority:       job.Priority,
			CreatedAt:      now,
		}, nil
	}
	return "", nil, fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidPayload, job.JobType)
}

func decodePayload(raw []byte, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty input payload", domain.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

func resolutionOrDefault(res string) string {
	if res == "" {
		return defaultResolution
	}
	return res
}
