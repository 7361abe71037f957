package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// JobEvent is the user-facing payload of a job outcome notification.
type JobEvent struct {
	JobID            string `json:"jobId"`
	Status           string `json:"status"`
	OutputURL        string `json:"outputUrl,omitempty"`
	Error            string `json:"error,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs,omitempty"`
}

// Notifier fans a job outcome out to the owning user. Delivery is best effort;
// callers must not treat a notification failure as a processing failure.
type Notifier interface {
	JobCompleted(ctx context.Context, userID string, ev JobEvent) error
	JobFailed(ctx context.Context, userID string, ev JobEvent) error
}

type message struct {
	Event string `json:"event"`
	JobEvent
}

// RedisNotifier publishes user-scoped events on per-user pub/sub channels that
// the realtime gateway subscribes to.
type RedisNotifier struct {
	rdb           *redis.Client
	channelPrefix string
}

func NewRedisNotifier(rdb *redis.Client, channelPrefix string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channelPrefix: channelPrefix}
}

func (n *RedisNotifier) JobCompleted(ctx context.Context, userID string, ev JobEvent) error {
	return n.publish(ctx, userID, message{Event: "job_completed", JobEvent: ev})
}

func (n *RedisNotifier) JobFailed(ctx context.Context, userID string, ev JobEvent) error {
	return n.publish(ctx, userID, message{Event: "job_failed", JobEvent: ev})
}

func (n *RedisNotifier) publish(ctx context.Context, userID string, msg message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	channel := n.channelPrefix + userID
	if err := n.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// URLRewriter substitutes the internal object-storage host with the public one
// in output URLs before they reach users.
type URLRewriter struct {
	internal string
	public   string
}

func NewURLRewriter(internal, public string) URLRewriter {
	return URLRewriter{internal: internal, public: public}
}

// Rewrite returns url with the internal host prefix replaced. URLs that do not
// point at the internal host pass through unchanged.
func (r URLRewriter) Rewrite(url string) string {
	if r.internal == "" || r.public == "" {
		return url
	}
	if strings.HasPrefix(url, r.internal) {
		return r.public + strings.TrimPrefix(url, r.internal)
	}
	return url
}
