package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarm primes the permission decision cache for recently
	// assigned users.
	TaskCacheWarm = "rbac:cache_warm"
	// TaskIntegrityScan audits the association relations against the
	// entity tables.
	TaskIntegrityScan = "rbac:integrity_scan"
)

// CacheWarmPayload bounds how many users a warm pass touches.
type CacheWarmPayload struct {
	Users int `json:"users"`
}

// NewCacheWarmTask constructs an Asynq task.
func NewCacheWarmTask(payload CacheWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarm, data), nil
}

// NewIntegrityScanTask constructs an Asynq task.
func NewIntegrityScanTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskIntegrityScan, nil), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueCacheWarm enqueues a cache warm task.
func (c *Client) EnqueueCacheWarm(ctx context.Context, payload CacheWarmPayload) (*asynq.TaskInfo, error) {
	task, err := NewCacheWarmTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
