package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Priya8975/incident-subscriptions/internal/domain"
)

// DeliveryLog is the read side of the delivery store.
type DeliveryLog interface {
	ListDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error)
	LatestStatus(ctx context.Context, incidentID, subscriberID int64) (domain.DeliveryRecord, bool, error)
}

type DeliveryHandler struct {
	log DeliveryLog
}

func NewDeliveryHandler(log DeliveryLog) *DeliveryHandler {
	return &DeliveryHandler{log: log}
}

func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.DeliveryFilter
		err    error
	)
	if filter.IncidentID, err = optionalQueryID(r, "incident_id"); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.SubscriberID, err = optionalQueryID(r, "subscriber_id"); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	records, err := h.log.ListDeliveries(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// LatestStatus returns the last status delivered to a subscriber for an incident.
func (h *DeliveryHandler) LatestStatus(w http.ResponseWriter, r *http.Request) {
	incidentID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	subscriberID, err := urlID(r, "subscriberID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, ok, err := h.log.LatestStatus(r.Context(), incidentID, subscriberID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get latest status")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no status delivered yet")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}
