package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

const (
	maxRetry    = 3
	taskTimeout = 2 * time.Minute
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt),
		queue:  queueName,
	}
}

// EnqueueGenerateThumbnail schedules a thumbnail run. A non-empty RunID is
// used as the task ID.
func (c *Client) EnqueueGenerateThumbnail(ctx context.Context, payload GenerateThumbnailPayload) (*asynq.TaskInfo, error) {
	task, err := NewGenerateThumbnailTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, taskOptions(c.queue, payload)...)
}

func taskOptions(queueName string, payload GenerateThumbnailPayload) []asynq.Option {
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
	}
	if payload.RunID != "" {
		opts = append(opts, asynq.TaskID(payload.RunID))
	}
	return opts
}

func (c *Client) Close() error {
	return c.client.Close()
}
