package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceover/internal/config"
)

// VoiceoverTimeout bounds one queued pipeline run.
const VoiceoverTimeout = 5 * time.Minute

type Client struct {
	client *asynq.Client
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueVoiceover queues a pipeline run. The chains already fall back
// across providers, so the task is retried only once.
func (c *Client) EnqueueVoiceover(ctx context.Context, payload VoiceoverPayload) error {
	return c.enqueue(ctx, TypeVoiceoverProcess, payload,
		asynq.MaxRetry(1),
		asynq.Timeout(VoiceoverTimeout),
		asynq.TaskID(payload.JobID),
	)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
