package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
	"github.com/Priya8975/incident-subscriptions/internal/registry"
)

type IncidentHandler struct {
	registry *registry.Registry
}

func NewIncidentHandler(reg *registry.Registry) *IncidentHandler {
	return &IncidentHandler{registry: reg}
}

// Notify broadcasts a status change to every subscriber of the incident.
func (h *IncidentHandler) Notify(w http.ResponseWriter, r *http.Request) {
	incidentID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == nil {
		respondError(w, http.StatusBadRequest, "status is required")
		return
	}

	// A caller that goes away must not cut the fan-out short for the
	// remaining subscribers.
	res := h.registry.Notify(context.WithoutCancel(r.Context()), *req.Status, incidentID)

	respondJSON(w, http.StatusAccepted, domain.NotifyResponse{
		IncidentID: incidentID,
		Status:     *req.Status,
		Matched:    res.Matched,
		Failed:     res.Failed,
	})
}

func (h *IncidentHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	incidentID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids := h.registry.SubscribersOf(incidentID)
	if ids == nil {
		ids = []int64{}
	}
	respondJSON(w, http.StatusOK, ids)
}
