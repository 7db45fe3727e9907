package domain

// Notification is what a delivery sink receives for a single matched subscription.
type Notification struct {
	SubscriberID int64 `json:"subscriber_id"`
	IncidentID   int64 `json:"incident_id"`
	Status       int64 `json:"status"`
}

type NotifyRequest struct {
	Status *int64 `json:"status"`
}

type NotifyResponse struct {
	IncidentID int64 `json:"incident_id"`
	Status     int64 `json:"status"`
	Matched    int   `json:"matched"`
	Failed     int   `json:"failed"`
}
