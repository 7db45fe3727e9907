package api

import (
	"context"
	"net/http"

	"github.com/Priya8975/incident-subscriptions/internal/engine"
	"github.com/Priya8975/incident-subscriptions/internal/registry"
)

type QueueStats interface {
	QueueDepth(ctx context.Context) (int64, error)
}

type CircuitStates interface {
	State(ctx context.Context, subscriberID int64) engine.CircuitBreakerState
}

// LiveFeed serves the operator WebSocket feed.
type LiveFeed interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

type DashboardHandler struct {
	registry *registry.Registry
	queue    QueueStats
	circuits CircuitStates
	feed     LiveFeed
}

func NewDashboardHandler(reg *registry.Registry, queue QueueStats, circuits CircuitStates, feed LiveFeed) *DashboardHandler {
	return &DashboardHandler{registry: reg, queue: queue, circuits: circuits, feed: feed}
}

type metricsResponse struct {
	Subscriptions    int   `json:"subscriptions"`
	QueueDepth       int64 `json:"queue_depth"`
	WebSocketClients int   `json:"websocket_clients"`
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	depth, err := h.queue.QueueDepth(r.Context())
	if err != nil {
		depth = -1
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		Subscriptions:    h.registry.Len(),
		QueueDepth:       depth,
		WebSocketClients: h.feed.ClientCount(),
	})
}

// SubscriberHealth reports the circuit breaker state for one subscriber.
func (h *DashboardHandler) SubscriberHealth(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	type healthResponse struct {
		SubscriberID   int64                      `json:"subscriber_id"`
		CircuitBreaker engine.CircuitBreakerState `json:"circuit_breaker"`
	}

	respondJSON(w, http.StatusOK, healthResponse{
		SubscriberID:   subscriberID,
		CircuitBreaker: h.circuits.State(r.Context(), subscriberID),
	})
}
