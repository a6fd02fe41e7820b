package models

import "time"

// Notification is the payload published to the notification sink. Delivery
// is fire-and-forget; the worker persists what it manages to drain.
type Notification struct {
	NotificationID string    `json:"notificationId" bson:"notificationId"`
	RecipientID    string    `json:"recipientId" bson:"recipientId"`
	Channel        string    `json:"channel" bson:"channel"`
	EntityType     string    `json:"entityType" bson:"entityType"`
	EntityID       string    `json:"entityId" bson:"entityId"`
	Message        string    `json:"message" bson:"message"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	Read           bool      `json:"read" bson:"read"`
}
