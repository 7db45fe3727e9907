package api

import (
	"encoding/json"
	"net/http"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
	"github.com/Priya8975/incident-subscriptions/internal/registry"
)

type SubscriptionHandler struct {
	registry *registry.Registry
}

func NewSubscriptionHandler(reg *registry.Registry) *SubscriptionHandler {
	return &SubscriptionHandler{registry: reg}
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IncidentID == nil {
		respondError(w, http.StatusBadRequest, "incident_id is required")
		return
	}
	if req.SubscriberID == nil {
		respondError(w, http.StatusBadRequest, "subscriber_id is required")
		return
	}

	h.registry.Subscribe(*req.IncidentID, *req.SubscriberID)

	respondJSON(w, http.StatusCreated, domain.Subscription{
		IncidentID:   *req.IncidentID,
		SubscriberID: *req.SubscriberID,
	})
}

// Delete removes one matching subscription. Deleting a pair that is not
// registered still succeeds.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	incidentID, err := parseID(r.URL.Query().Get("incident_id"), "incident_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	subscriberID, err := parseID(r.URL.Query().Get("subscriber_id"), "subscriber_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.registry.Unsubscribe(incidentID, subscriberID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	incidentID, err := optionalQueryID(r, "incident_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	subs := h.registry.Subscriptions()
	if incidentID != nil {
		filtered := subs[:0]
		for _, sub := range subs {
			if sub.IncidentID == *incidentID {
				filtered = append(filtered, sub)
			}
		}
		subs = filtered
	}

	respondJSON(w, http.StatusOK, subs)
}
