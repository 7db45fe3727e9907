package domain

// Subscription pairs an incident with a subscriber watching it.
// Two subscriptions are equal when both ids are equal.
type Subscription struct {
	IncidentID   int64 `json:"incident_id"`
	SubscriberID int64 `json:"subscriber_id"`
}

type SubscribeRequest struct {
	IncidentID   *int64 `json:"incident_id"`
	SubscriberID *int64 `json:"subscriber_id"`
}
