package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
)

func setupTestQueue(t *testing.T) (*QueueSink, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewQueueSink(client, logger), client
}

func TestQueueSink_DeliverQueuesJob(t *testing.T) {
	q, client := setupTestQueue(t)
	ctx := context.Background()

	n := domain.Notification{SubscriberID: 100, IncidentID: 7, Status: 3}
	if err := q.Deliver(ctx, n); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	members, err := client.ZRange(ctx, NotificationQueueKey, 0, -1).Result()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(members))
	}

	var job NotificationJob
	if err := json.Unmarshal([]byte(members[0]), &job); err != nil {
		t.Fatalf("failed to unmarshal job: %v", err)
	}
	if job.Notification() != n {
		t.Errorf("queued notification: got %+v, want %+v", job.Notification(), n)
	}
	if job.NotificationID == "" {
		t.Error("expected a notification id")
	}
}

func TestQueueSink_DuplicateDeliveriesAreDistinctJobs(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	n := domain.Notification{SubscriberID: 1, IncidentID: 1, Status: 1}
	for i := 0; i < 2; i++ {
		if err := q.Deliver(ctx, n); err != nil {
			t.Fatalf("deliver %d failed: %v", i+1, err)
		}
	}

	depth, err := q.QueueDepth(ctx)
	if err != nil {
		t.Fatalf("failed to get queue depth: %v", err)
	}
	if depth != 2 {
		t.Errorf("expected queue depth 2, got %d", depth)
	}
}

func TestQueueSink_EnqueueUsesReadyTimeAsScore(t *testing.T) {
	q, client := setupTestQueue(t)
	ctx := context.Background()

	readyAt := time.Now().Add(time.Minute)
	if err := q.Enqueue(ctx, NotificationJob{NotificationID: "n-1"}, readyAt); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	results, err := client.ZRangeWithScores(ctx, NotificationQueueKey, 0, -1).Result()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 job, got %d", len(results))
	}
	if results[0].Score != float64(readyAt.UnixMicro()) {
		t.Errorf("score: got %f, want %d", results[0].Score, readyAt.UnixMicro())
	}
}

func TestQueueSink_DeliverFailsWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	q := NewQueueSink(client, logger)

	err := q.Deliver(context.Background(), domain.Notification{SubscriberID: 1, IncidentID: 1})
	if err == nil {
		t.Error("expected error when redis is unavailable")
	}
}

func TestQueueDepth_Empty(t *testing.T) {
	q, _ := setupTestQueue(t)

	depth, err := q.QueueDepth(context.Background())
	if err != nil {
		t.Fatalf("failed to get queue depth: %v", err)
	}
	if depth != 0 {
		t.Errorf("expected empty queue, got depth %d", depth)
	}
}
