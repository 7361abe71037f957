package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Envelope wraps every message on a queue. All job-request variants share one
// queue and are told apart by Kind, not by destination.
type Envelope struct {
	Kind string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Queue is a Redis-list backed message queue with at-least-once semantics on
// the consumer side: a message popped by a crashing consumer is lost from the
// list, so producers that need stronger guarantees keep their own state
// (render jobs stay PENDING until publish succeeds).
type Queue struct {
	rdb  *redis.Client
	name string
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Publish marshals payload into an envelope and pushes it onto the queue.
func (q *Queue) Publish(ctx context.Context, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	raw, err := json.Marshal(Envelope{Kind: kind, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, raw).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", q.name, err)
	}
	return nil
}

// Pop blocks up to timeout for the next message (BRPOP). It returns (nil, nil)
// when the timeout elapses without a message.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Envelope, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
