package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
)

// NotificationQueueKey is the sorted set holding pending notification jobs.
const NotificationQueueKey = "notification_queue"

// NotificationJob is a single pending notification queued in Redis.
type NotificationJob struct {
	NotificationID string    `json:"notification_id"`
	SubscriberID   int64     `json:"subscriber_id"`
	IncidentID     int64     `json:"incident_id"`
	Status         int64     `json:"status"`
	QueuedAt       time.Time `json:"queued_at"`
}

// Notification returns the payload the job delivers.
func (j NotificationJob) Notification() domain.Notification {
	return domain.Notification{
		SubscriberID: j.SubscriberID,
		IncidentID:   j.IncidentID,
		Status:       j.Status,
	}
}

// QueueSink hands notifications to the worker pool through a Redis sorted set
// scored by the time a job becomes ready.
type QueueSink struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewQueueSink(redisClient *redis.Client, logger *slog.Logger) *QueueSink {
	return &QueueSink{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Deliver queues one notification for immediate processing.
func (q *QueueSink) Deliver(ctx context.Context, n domain.Notification) error {
	job := NotificationJob{
		NotificationID: uuid.New().String(),
		SubscriberID:   n.SubscriberID,
		IncidentID:     n.IncidentID,
		Status:         n.Status,
		QueuedAt:       time.Now().UTC(),
	}
	if err := q.Enqueue(ctx, job, job.QueuedAt); err != nil {
		return err
	}

	q.logger.Debug("notification queued",
		"notification_id", job.NotificationID,
		"incident_id", job.IncidentID,
		"subscriber_id", job.SubscriberID,
	)
	return nil
}

// Enqueue adds job to the queue, ready for dispatch at readyAt.
func (q *QueueSink) Enqueue(ctx context.Context, job NotificationJob, readyAt time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling notification job: %w", err)
	}

	err = q.redisClient.ZAdd(ctx, NotificationQueueKey, redis.Z{
		Score:  float64(readyAt.UnixMicro()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("queuing notification to redis: %w", err)
	}
	return nil
}

// QueueDepth returns the current number of jobs waiting in the queue.
func (q *QueueSink) QueueDepth(ctx context.Context) (int64, error) {
	return q.redisClient.ZCard(ctx, NotificationQueueKey).Result()
}
