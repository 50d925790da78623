package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/authgate/authgate"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrQueueUnavailable wraps Redis failures on the queue lists.
var ErrQueueUnavailable = errors.New("notification queue unavailable")

// Job is one queued notification.
type Job struct {
	ID           string                `json:"id"`
	Notification authgate.Notification `json:"notification"`
	EnqueuedAt   time.Time             `json:"enqueuedAt"`
	Attempts     int                   `json:"attempts,omitempty"`
	LastError    string                `json:"lastError,omitempty"`
}

// QueueConfig names the Redis lists.
type QueueConfig struct {
	Key           string
	DeadLetterKey string
}

// DefaultQueueConfig returns the default list names.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Key:           "notify:jobs",
		DeadLetterKey: "notify:dead",
	}
}

// Queue is a FIFO of jobs on a Redis list: LPUSH to enqueue, BRPOP to take.
type Queue struct {
	redis  redis.UniversalClient
	config QueueConfig
}

var _ authgate.Notifier = (*Queue)(nil)

// NewQueue creates a Queue; empty names fall back to DefaultQueueConfig.
func NewQueue(redisClient redis.UniversalClient, cfg QueueConfig) *Queue {
	def := DefaultQueueConfig()
	if cfg.Key == "" {
		cfg.Key = def.Key
	}
	if cfg.DeadLetterKey == "" {
		cfg.DeadLetterKey = def.DeadLetterKey
	}
	return &Queue{redis: redisClient, config: cfg}
}

// Enqueue implements authgate.Notifier.
func (q *Queue) Enqueue(ctx context.Context, n authgate.Notification) error {
	job := Job{
		ID:           uuid.NewString(),
		Notification: n,
		EnqueuedAt:   time.Now().UTC(),
	}
	return q.push(ctx, job, false)
}

// Dequeue blocks up to wait for the next job. It returns nil, nil when the
// wait elapses with the queue empty.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	res, err := q.redis.BRPop(ctx, wait, q.config.Key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	// BRPOP replies [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("%w: unexpected reply length %d", ErrQueueUnavailable, len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Requeue puts job back at the consuming end so it is taken next.
func (q *Queue) Requeue(ctx context.Context, job Job) error {
	return q.push(ctx, job, true)
}

// DeadLetter parks job with the failure cause. Codes and tokens are dropped
// so the list holds nothing redeemable.
func (q *Queue) DeadLetter(ctx context.Context, job Job, cause error) error {
	job.Notification.Code = ""
	job.Notification.Token = ""
	if cause != nil {
		job.LastError = cause.Error()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.redis.LPush(ctx, q.config.DeadLetterKey, raw).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// Len returns the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.redis.LLen(ctx, q.config.Key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return n, nil
}

// DeadLetters returns up to limit parked jobs, newest first.
func (q *Queue) DeadLetters(ctx context.Context, limit int64) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}
	raws, err := q.redis.LRange(ctx, q.config.DeadLetterKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *Queue) push(ctx context.Context, job Job, front bool) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if front {
		err = q.redis.RPush(ctx, q.config.Key, raw).Err()
	} else {
		err = q.redis.LPush(ctx, q.config.Key, raw).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}
