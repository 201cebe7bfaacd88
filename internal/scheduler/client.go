package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"gigwork_maps/internal/jobs"
	"gigwork_maps/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	jobGeocodeMaxRetry  = 5
	jobGeocodeTimeout   = 30 * time.Second
	jobGeocodeRetention = 24 * time.Hour
)

type Client struct {
	client *asynq.Client
	queue  string
}

var _ jobs.GeocodeEnqueuer = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
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

// EnqueueJobGeocode schedules geocoding of a job site. A task for the same
// job that is still pending or retained is not enqueued twice.
func (c *Client) EnqueueJobGeocode(ctx context.Context, jobID uuid.UUID, address string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewJobGeocodeTask(JobGeocodePayload{JobID: jobID.String(), Address: address})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, jobGeocodeOptions(c.queue, jobID)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func jobGeocodeOptions(queue string, jobID uuid.UUID) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.TaskID(TaskJobGeocode + ":" + jobID.String()),
		asynq.MaxRetry(jobGeocodeMaxRetry),
		asynq.Timeout(jobGeocodeTimeout),
		asynq.Retention(jobGeocodeRetention),
	}
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

// NewRedisClient opens the go-redis client shared by caches.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
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
