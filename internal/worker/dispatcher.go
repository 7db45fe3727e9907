package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/incident-subscriptions/internal/engine"
)

// Dispatcher polls the Redis notification queue and feeds ready jobs to the pool.
type Dispatcher struct {
	redisClient  *redis.Client
	pool         *Pool
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
}

func NewDispatcher(redisClient *redis.Client, pool *Pool, pollInterval time.Duration, logger *slog.Logger) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Dispatcher{
		redisClient:  redisClient,
		pool:         pool,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    10,
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// poll claims up to batchSize ready jobs and submits them.
func (d *Dispatcher) poll(ctx context.Context) int {
	results, err := d.redisClient.ZRangeByScore(ctx, engine.NotificationQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(time.Now().UnixMicro(), 10),
		Count: d.batchSize,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("failed to poll notification queue", "error", err)
		}
		return 0
	}

	dispatched := 0
	for _, member := range results {
		// ZREM returning 0 means another dispatcher claimed the job first.
		removed, err := d.redisClient.ZRem(ctx, engine.NotificationQueueKey, member).Result()
		if err != nil {
			d.logger.Error("failed to claim notification job", "error", err)
			continue
		}
		if removed == 0 {
			continue
		}

		var job engine.NotificationJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			d.logger.Error("dropping malformed notification job", "error", err)
			continue
		}

		if !d.pool.Submit(ctx, job) {
			d.putBack(context.WithoutCancel(ctx), job, member)
			return dispatched
		}
		dispatched++
	}
	return dispatched
}

// putBack returns a claimed but undispatched job to the queue.
func (d *Dispatcher) putBack(ctx context.Context, job engine.NotificationJob, member string) {
	err := d.redisClient.ZAdd(ctx, engine.NotificationQueueKey, redis.Z{
		Score:  float64(time.Now().UnixMicro()),
		Member: member,
	}).Err()
	if err != nil {
		d.logger.Error("failed to return notification job to queue",
			"error", err,
			"notification_id", job.NotificationID,
			"incident_id", job.IncidentID,
			"subscriber_id", job.SubscriberID,
		)
	}
}
