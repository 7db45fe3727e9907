// Package registry keeps the in-memory list of incident subscriptions and fans
// status changes out to a delivery sink.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
)

// Sink performs the actual act of informing a subscriber.
type Sink interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, n domain.Notification) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}

// Result summarises a single Notify call.
type Result struct {
	Matched int
	Failed  int
}

// Registry holds an ordered list of (incident, subscriber) pairs.
// Duplicate pairs are allowed and each one is delivered to separately.
type Registry struct {
	mu            sync.Mutex
	subscriptions []domain.Subscription
	sink          Sink
	logger        *slog.Logger
}

// New returns an empty registry delivering through sink.
func New(sink Sink, logger *slog.Logger) *Registry {
	return &Registry{
		sink:   sink,
		logger: logger,
	}
}

// Subscribe appends the pair to the registry.
func (r *Registry) Subscribe(incidentID, subscriberID int64) {
	r.mu.Lock()
	r.subscriptions = append(r.subscriptions, domain.Subscription{
		IncidentID:   incidentID,
		SubscriberID: subscriberID,
	})
	r.mu.Unlock()

	r.logger.Debug("subscribed", "incident_id", incidentID, "subscriber_id", subscriberID)
}

// Unsubscribe removes the first entry equal to the pair. Removing an absent
// pair is a no-op.
func (r *Registry) Unsubscribe(incidentID, subscriberID int64) {
	target := domain.Subscription{IncidentID: incidentID, SubscriberID: subscriberID}

	r.mu.Lock()
	removed := false
	for i, sub := range r.subscriptions {
		if sub == target {
			r.subscriptions = append(r.subscriptions[:i], r.subscriptions[i+1:]...)
			removed = true
			break
		}
	}
	r.mu.Unlock()

	if removed {
		r.logger.Debug("unsubscribed", "incident_id", incidentID, "subscriber_id", subscriberID)
	}
}

// Notify hands status to every subscriber of incidentID, once per matching entry.
// The sink is called after the lock is released; a failing delivery does not
// stop the remaining ones.
func (r *Registry) Notify(ctx context.Context, status, incidentID int64) Result {
	targets := r.SubscribersOf(incidentID)

	res := Result{Matched: len(targets)}
	for _, subscriberID := range targets {
		n := domain.Notification{
			SubscriberID: subscriberID,
			IncidentID:   incidentID,
			Status:       status,
		}
		if err := r.deliver(ctx, n); err != nil {
			res.Failed++
			r.logger.Warn("notification delivery failed",
				"incident_id", incidentID,
				"subscriber_id", subscriberID,
				"status", status,
				"error", err,
			)
		}
	}

	if res.Matched > 0 {
		r.logger.Info("incident notified",
			"incident_id", incidentID,
			"status", status,
			"matched", res.Matched,
			"failed", res.Failed,
		)
	}

	return res
}

func (r *Registry) deliver(ctx context.Context, n domain.Notification) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink panicked: %v", p)
		}
	}()
	return r.sink.Deliver(ctx, n)
}

// SubscribersOf returns the subscriber ids of every entry watching incidentID,
// in registration order and including duplicates.
func (r *Registry) SubscribersOf(incidentID int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []int64
	for _, sub := range r.subscriptions {
		if sub.IncidentID == incidentID {
			ids = append(ids, sub.SubscriberID)
		}
	}
	return ids
}

// Subscriptions returns a copy of the current list.
func (r *Registry) Subscriptions() []domain.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Subscription, len(r.subscriptions))
	copy(out, r.subscriptions)
	return out
}

// Len returns the number of entries, duplicates included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscriptions)
}
