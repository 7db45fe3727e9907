package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
	"github.com/Priya8975/incident-subscriptions/internal/engine"
	ws "github.com/Priya8975/incident-subscriptions/internal/websocket"
)

// rateLimitDelay is how far a throttled job is pushed back in the queue.
const rateLimitDelay = time.Second

// Recorder persists the outcome of a notification.
type Recorder interface {
	RecordDelivery(ctx context.Context, rec domain.DeliveryRecord) error
}

// Broadcaster publishes outcomes to live observers.
type Broadcaster interface {
	Broadcast(event ws.DeliveryEvent)
}

// Requeuer puts a job back on the queue.
type Requeuer interface {
	Enqueue(ctx context.Context, job engine.NotificationJob, readyAt time.Time) error
}

// Deliverer informs a single subscriber of an incident's status by writing it
// to the delivery log, guarded by that subscriber's circuit breaker and rate limit.
type Deliverer struct {
	recorder       Recorder
	circuitBreaker *engine.CircuitBreaker
	rateLimiter    *engine.RateLimiter
	requeuer       Requeuer
	hub            Broadcaster
	logger         *slog.Logger
}

func NewDeliverer(
	recorder Recorder,
	cb *engine.CircuitBreaker,
	rl *engine.RateLimiter,
	requeuer Requeuer,
	hub Broadcaster,
	logger *slog.Logger,
) *Deliverer {
	return &Deliverer{
		recorder:       recorder,
		circuitBreaker: cb,
		rateLimiter:    rl,
		requeuer:       requeuer,
		hub:            hub,
		logger:         logger,
	}
}

// Deliver processes one job. Failures are recorded against the subscriber's
// circuit breaker and never retried.
func (d *Deliverer) Deliver(ctx context.Context, job engine.NotificationJob) {
	if _, err := d.circuitBreaker.Allow(ctx, job.SubscriberID); errors.Is(err, engine.ErrCircuitOpen) {
		d.skip(ctx, job, err)
		return
	}

	if err := d.rateLimiter.Allow(ctx, job.SubscriberID); errors.Is(err, engine.ErrRateLimited) {
		if err := d.requeuer.Enqueue(ctx, job, time.Now().Add(rateLimitDelay)); err != nil {
			d.logger.Error("failed to requeue rate limited notification",
				"error", err,
				"notification_id", job.NotificationID,
				"subscriber_id", job.SubscriberID,
			)
		}
		return
	}

	// The delivery-log write is the act of informing the subscriber, so the
	// breaker guards it. A shared log outage trips every active circuit.
	err := d.recorder.RecordDelivery(ctx, record(job, domain.OutcomeDelivered, nil))
	if err != nil {
		d.circuitBreaker.RecordFailure(ctx, job.SubscriberID)
		d.publish(ws.EventFailed, job, err)
		d.logger.Warn("notification delivery failed",
			"error", err,
			"notification_id", job.NotificationID,
			"incident_id", job.IncidentID,
			"subscriber_id", job.SubscriberID,
		)
		return
	}

	d.circuitBreaker.RecordSuccess(ctx, job.SubscriberID)
	d.publish(ws.EventDelivered, job, nil)
	d.logger.Info("notification delivered",
		"notification_id", job.NotificationID,
		"incident_id", job.IncidentID,
		"subscriber_id", job.SubscriberID,
		"status", job.Status,
		"queued_for_ms", time.Since(job.QueuedAt).Milliseconds(),
	)
}

func (d *Deliverer) skip(ctx context.Context, job engine.NotificationJob, reason error) {
	if err := d.recorder.RecordDelivery(ctx, record(job, domain.OutcomeSkipped, reason)); err != nil {
		d.logger.Error("failed to record skipped notification",
			"error", err,
			"notification_id", job.NotificationID,
		)
	}
	d.publish(ws.EventSkipped, job, reason)
	d.logger.Warn("notification skipped",
		"reason", reason,
		"notification_id", job.NotificationID,
		"incident_id", job.IncidentID,
		"subscriber_id", job.SubscriberID,
	)
}

func (d *Deliverer) publish(eventType string, job engine.NotificationJob, err error) {
	event := ws.DeliveryEvent{
		Type:           eventType,
		NotificationID: job.NotificationID,
		IncidentID:     job.IncidentID,
		SubscriberID:   job.SubscriberID,
		Status:         job.Status,
	}
	if err != nil {
		event.Error = err.Error()
	}
	d.hub.Broadcast(event)
}

func record(job engine.NotificationJob, outcome string, reason error) domain.DeliveryRecord {
	rec := domain.DeliveryRecord{
		NotificationID: job.NotificationID,
		IncidentID:     job.IncidentID,
		SubscriberID:   job.SubscriberID,
		Status:         job.Status,
		Outcome:        outcome,
	}
	if reason != nil {
		msg := reason.Error()
		rec.ErrorMessage = &msg
	}
	return rec
}
