package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mandi/db"
	"mandi/models"
	"mandi/rdx"

	"github.com/google/uuid"
)

var notifyChannel = "notification-events"

// SetChannel overrides the pub/sub channel; called from main with the
// configured value before any emit.
func SetChannel(name string) {
	if name != "" {
		notifyChannel = name
	}
}

// Emit publishes an entity-change event for the search indexer. Failures
// are logged and dropped.
func Emit(ctx context.Context, eventName string, content models.Index) {
	data, err := json.Marshal(content)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event content: %v", err)
		return
	}

	if rdx.Conn == nil {
		return
	}
	if err := rdx.Conn.Publish(context.Background(), "indexing-events", data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish %s event to Redis: %v", eventName, err)
	}
}

// SendNotification publishes a user-facing notification. Fire-and-forget:
// any failure here is logged and swallowed, never surfaced to the caller,
// so a dead broker cannot fail or roll back the mutation that emitted it.
func SendNotification(recipientID, channel, entityType, entityID, message string) {
	n := models.Notification{
		NotificationID: uuid.NewString(),
		RecipientID:    recipientID,
		Channel:        channel,
		EntityType:     entityType,
		EntityID:       entityID,
		Message:        message,
		CreatedAt:      time.Now(),
	}

	data, err := json.Marshal(n)
	if err != nil {
		log.Printf("[Notify] marshal failed: %v", err)
		return
	}
	if rdx.Conn == nil {
		log.Printf("[Notify] no broker; dropped notification for %s", recipientID)
		return
	}
	if err := rdx.Conn.Publish(context.Background(), notifyChannel, data).Err(); err != nil {
		log.Printf("[Notify] publish failed for %s: %v", recipientID, err)
	}
}

// StartNotificationWorker drains the notification channel into MongoDB so
// the delivery log survives restarts. Runs until the process exits.
func StartNotificationWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, notifyChannel)
	ch := sub.Channel()

	log.Println("[NotificationWorker] Listening for notification events...")

	for msg := range ch {
		var n models.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			log.Printf("[NotificationWorker] Failed to parse event: %v", err)
			continue
		}

		if _, err := db.NotificationsCollection.InsertOne(ctx, n); err != nil {
			log.Printf("[NotificationWorker] insert error: %v", err)
		}
	}
}
