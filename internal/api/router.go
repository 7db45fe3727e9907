package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Priya8975/incident-subscriptions/internal/registry"
)

const Version = "1.0.0"

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	Registry   *registry.Registry
	Deliveries DeliveryLog
	Queue      QueueStats
	Circuits   CircuitStates
	Feed       LiveFeed
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware)

	subHandler := NewSubscriptionHandler(deps.Registry)
	incidentHandler := NewIncidentHandler(deps.Registry)
	deliveryHandler := NewDeliveryHandler(deps.Deliveries)
	dashHandler := NewDashboardHandler(deps.Registry, deps.Queue, deps.Circuits, deps.Feed)

	r.Get("/ws", deps.Feed.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(Version))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", subHandler.Create)
			r.Get("/", subHandler.List)
			r.Delete("/", subHandler.Delete)
		})

		r.Route("/incidents/{id}", func(r chi.Router) {
			r.Post("/notify", incidentHandler.Notify)
			r.Get("/subscribers", incidentHandler.Subscribers)
			r.Get("/subscribers/{subscriberID}/status", deliveryHandler.LatestStatus)
		})

		r.Get("/deliveries", deliveryHandler.List)
		r.Get("/subscribers/{id}/health", dashHandler.SubscriberHealth)
		r.Get("/metrics", dashHandler.Metrics)
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
