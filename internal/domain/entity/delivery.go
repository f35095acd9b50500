package entity

import "time"

// Delivery status values
const (
	DeliveryStatusSent    = "SENT"
	DeliveryStatusFailed  = "FAILED"
	DeliveryStatusSkipped = "SKIPPED"
)

// Delivery records one attempt to hand a notification to an outbound sink
type Delivery struct {
	ID             string    `json:"id" bson:"_id,omitempty"`
	NotificationID string    `json:"notificationId" bson:"notificationId"`
	EventType      EventType `json:"eventType" bson:"eventType"`
	Sink           string    `json:"sink" bson:"sink"`
	Status         string    `json:"status" bson:"status"`
	Attempt        int       `json:"attempt" bson:"attempt"`
	ErrorDetail    string    `json:"errorDetail,omitempty" bson:"errorDetail,omitempty"`
	AttemptedAt    time.Time `json:"attemptedAt" bson:"attemptedAt"`
}
