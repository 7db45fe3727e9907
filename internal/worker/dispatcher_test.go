package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
	"github.com/Priya8975/incident-subscriptions/internal/engine"
)

type collectingHandler struct {
	mu   sync.Mutex
	jobs []engine.NotificationJob
}

func (h *collectingHandler) Deliver(_ context.Context, job engine.NotificationJob) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = append(h.jobs, job)
}

func (h *collectingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.jobs)
}

func setupDispatcherTest(t *testing.T) (*Dispatcher, *Pool, *collectingHandler, *engine.QueueSink) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	handler := &collectingHandler{}
	pool := NewPool(2, handler, logger)
	return NewDispatcher(client, pool, 10*time.Millisecond, logger), pool, handler, engine.NewQueueSink(client, logger)
}

func TestDispatcher_DispatchesReadyJobs(t *testing.T) {
	d, pool, handler, queue := setupDispatcherTest(t)
	ctx := context.Background()

	for _, sub := range []int64{10, 20, 30} {
		if err := queue.Deliver(ctx, domain.Notification{SubscriberID: sub, IncidentID: 1, Status: 2}); err != nil {
			t.Fatalf("failed to queue: %v", err)
		}
	}

	pool.Start(ctx)
	if n := d.poll(ctx); n != 3 {
		t.Errorf("expected 3 dispatched jobs, got %d", n)
	}
	pool.Stop()

	if handler.count() != 3 {
		t.Errorf("expected 3 handled jobs, got %d", handler.count())
	}
	depth, _ := queue.QueueDepth(ctx)
	if depth != 0 {
		t.Errorf("expected empty queue after dispatch, got %d", depth)
	}
}

func TestDispatcher_SkipsDelayedJobs(t *testing.T) {
	d, pool, handler, queue := setupDispatcherTest(t)
	ctx := context.Background()

	job := engine.NotificationJob{NotificationID: "later", SubscriberID: 1}
	if err := queue.Enqueue(ctx, job, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	pool.Start(ctx)
	if n := d.poll(ctx); n != 0 {
		t.Errorf("expected no dispatched jobs, got %d", n)
	}
	pool.Stop()

	if handler.count() != 0 {
		t.Errorf("delayed job should not be handled, got %d", handler.count())
	}
	depth, _ := queue.QueueDepth(ctx)
	if depth != 1 {
		t.Errorf("delayed job should stay queued, depth %d", depth)
	}
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	d, pool, handler, queue := setupDispatcherTest(t)
	ctx, cancel := context.WithCancel(context.Background())

	pool.Start(ctx)
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	if err := queue.Deliver(ctx, domain.Notification{SubscriberID: 5, IncidentID: 5, Status: 5}); err != nil {
		t.Fatalf("failed to queue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for handler.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
	pool.Stop()

	if handler.count() != 1 {
		t.Errorf("expected 1 handled job, got %d", handler.count())
	}
}

func TestDispatcher_PutBackRequeuesJob(t *testing.T) {
	d, _, _, queue := setupDispatcherTest(t)
	ctx := context.Background()

	job := engine.NotificationJob{NotificationID: "n-back", SubscriberID: 3, IncidentID: 1}
	data, _ := json.Marshal(job)
	d.putBack(ctx, job, string(data))

	depth, err := queue.QueueDepth(ctx)
	if err != nil {
		t.Fatalf("failed to get queue depth: %v", err)
	}
	if depth != 1 {
		t.Errorf("expected job back in queue, depth %d", depth)
	}
}

func TestDispatcher_PutBackFailureIsLogged(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))
	d := NewDispatcher(client, NewPool(1, &collectingHandler{}, logger), 10*time.Millisecond, logger)

	job := engine.NotificationJob{NotificationID: "n-lost", SubscriberID: 3, IncidentID: 1}
	d.putBack(context.Background(), job, `{"notification_id":"n-lost"}`)

	out := buf.String()
	if !strings.Contains(out, "failed to return notification job to queue") {
		t.Errorf("expected put-back failure to be logged, got: %s", out)
	}
	if !strings.Contains(out, `"notification_id":"n-lost"`) {
		t.Errorf("expected log to carry notification_id, got: %s", out)
	}
}
