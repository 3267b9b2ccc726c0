package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// TaskRecalculateAll triggers a recompute of every open calculator session.
// It is enqueued whenever the rate configuration changes.
const TaskRecalculateAll = "calculator:recalculate_all"

// QueueDefault is the only queue this service uses.
const QueueDefault = "default"

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueRecalculateAll enqueues a bulk recompute. The task carries no
// payload; it always recomputes against the configuration current at
// execution time. Duplicate submissions within the retention window collapse
// into one run.
func (c *Client) EnqueueRecalculateAll(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("jobs: client not configured")
	}
	task := asynq.NewTask(TaskRecalculateAll, nil)
	_, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.Unique(30*time.Second),
		asynq.MaxRetry(3),
	)
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return err
	}
	return nil
}
