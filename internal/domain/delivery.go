package domain

import (
	"time"
)

// Delivery outcomes recorded in the delivery log.
const (
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
)

type DeliveryRecord struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	IncidentID     int64     `json:"incident_id"`
	SubscriberID   int64     `json:"subscriber_id"`
	Status         int64     `json:"status"`
	Outcome        string    `json:"outcome"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type DeliveryFilter struct {
	IncidentID   *int64
	SubscriberID *int64
	Limit        int
}
