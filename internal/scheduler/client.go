package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"crm_pipeline_backend/internal/email"
	"crm_pipeline_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const emailMaxRetry = 5

// Client enqueues background jobs.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// SendNotificationEmail enqueues msg for delivery by the worker, so SMTP
// latency and retries stay out of the request path.
func (c *Client) SendNotificationEmail(ctx context.Context, msg email.Message) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewNotificationEmailTask(msg)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(emailMaxRetry))
	return err
}

// Enqueue runs a pipeline job as soon as a worker is free.
func (c *Client) Enqueue(ctx context.Context, taskType string) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewPipelineTask(taskType), asynq.Queue(c.queue))
	return err
}

var _ email.Sender = (*Client)(nil)

func connOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	return redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetSchedulerQueue(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
