package orders

import (
	"fmt"
	"time"

	"mandi/apperr"
	"mandi/models"
	"mandi/utils"
)

// statusMessages is the closed mapping from status to the buyer-facing
// message. Unknown statuses fall back to a generic template.
var statusMessages = map[models.OrderStatus]string{
	models.OrderPending:        "Your order has been placed and is awaiting confirmation",
	models.OrderConfirmed:      "Your order has been confirmed by the farmer",
	models.OrderPreparing:      "Your order is being prepared",
	models.OrderPacked:         "Your order has been packed and is ready to go",
	models.OrderShipped:        "Your order has been shipped",
	models.OrderOutForDelivery: "Your order is out for delivery",
	models.OrderDelivered:      "Your order has been delivered. Enjoy!",
	models.OrderCancelled:      "Your order has been cancelled",
	models.OrderReturned:       "Your order has been marked as returned",
}

// StatusMessage returns the buyer notification text for a status.
func StatusMessage(status models.OrderStatus) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Your order status updated to %s", status)
}

var validStatuses = map[models.OrderStatus]bool{
	models.OrderPending:        true,
	models.OrderConfirmed:      true,
	models.OrderPreparing:      true,
	models.OrderPacked:         true,
	models.OrderShipped:        true,
	models.OrderOutForDelivery: true,
	models.OrderDelivered:      true,
	models.OrderCancelled:      true,
	models.OrderReturned:       true,
}

// cancellableStatuses are the only states Cancel may be called from.
var cancellableStatuses = map[models.OrderStatus]bool{
	models.OrderPending:   true,
	models.OrderConfirmed: true,
	models.OrderPreparing: true,
}

// NewOrder initializes an order aggregate. If the caller supplies no
// tracking log, a pending entry is synthesized so CurrentStatus always
// mirrors the tail of the log.
func NewOrder(order *models.Order, actorID string) {
	now := time.Now()
	order.OrderID = utils.GenerateID(14)
	order.CreatedAt = now
	order.UpdatedAt = now
	if len(order.Tracking) == 0 {
		order.Tracking = []models.TrackingEntry{{
			Status:    models.OrderPending,
			Timestamp: now,
			Notes:     "Order created",
			ActorID:   actorID,
		}}
	}
	order.CurrentStatus = order.Tracking[len(order.Tracking)-1].Status
}

// AddTrackingUpdate appends a tracking entry with a server-assigned
// timestamp, mirrors CurrentStatus, stamps the lifecycle timestamp for the
// status (write-once), and records the buyer notification in the order's
// audit log. The caller persists the order and emits the notification.
//
// The aggregate itself does not refuse appends on terminal orders; the
// route layer enforces that policy so support corrections (returned →
// re-shipped) stay possible.
func AddTrackingUpdate(order *models.Order, status models.OrderStatus, location, notes, actorID string, estimate *time.Time, driver *models.DriverInfo) (string, error) {
	if !validStatuses[status] {
		return "", apperr.Wrap(apperr.ErrValidation, "unknown order status %q", status)
	}
	now := time.Now()
	order.Tracking = append(order.Tracking, models.TrackingEntry{
		Status:            status,
		Timestamp:         now,
		Location:          location,
		Notes:             notes,
		ActorID:           actorID,
		EstimatedDelivery: estimate,
		Driver:            driver,
	})
	order.CurrentStatus = status
	order.UpdatedAt = now

	stampLifecycle(order, status, now)

	message := StatusMessage(status)
	order.Notifications = append(order.Notifications, models.NotificationRecord{
		Status:  status,
		Message: message,
		SentAt:  now,
	})
	return message, nil
}

// stampLifecycle freezes the first time an order enters a lifecycle status.
// Re-entry after a returned→re-shipped correction never overwrites a stamp.
func stampLifecycle(order *models.Order, status models.OrderStatus, now time.Time) {
	switch status {
	case models.OrderConfirmed:
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
	case models.OrderShipped:
		if order.ShippedAt == nil {
			order.ShippedAt = &now
		}
	case models.OrderDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
	case models.OrderCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	}
}

// Cancel rejects the order. Only pending, confirmed, and preparing orders
// can be cancelled; everything later is already in motion.
func Cancel(order *models.Order, reason, actorID string) (string, error) {
	if !cancellableStatuses[order.CurrentStatus] {
		return "", apperr.Wrap(apperr.ErrStateConflict, "order %s cannot be cancelled from status %s", order.OrderID, order.CurrentStatus)
	}
	notes := "Order cancelled"
	if reason != "" {
		notes = "Cancelled: " + reason
	}
	return AddTrackingUpdate(order, models.OrderCancelled, "", notes, actorID, nil, nil)
}

// Rate records a quality rating. Only the buyer of record may rate, and
// only once the order is delivered. Unlike lifecycle stamps, a later call
// overwrites the previous rating.
func Rate(order *models.Order, actorID string, rating int, feedback string, photos []string) error {
	if order.BuyerID != actorID {
		return apperr.Wrap(apperr.ErrPermissionDenied, "only the buyer can rate order %s", order.OrderID)
	}
	if order.CurrentStatus != models.OrderDelivered {
		return apperr.Wrap(apperr.ErrStateConflict, "order %s is not delivered yet", order.OrderID)
	}
	if rating < 1 || rating > 5 {
		return apperr.Wrap(apperr.ErrValidation, "rating must be between 1 and 5")
	}
	order.Rating = &models.OrderRating{
		Rating:   rating,
		Feedback: feedback,
		Photos:   photos,
		RatedAt:  time.Now(),
	}
	order.UpdatedAt = time.Now()
	return nil
}

// EstimatedDelivery resolves the delivery estimate. Precedence: logistics
// provider estimate, then the latest tracking entry carrying one, then a
// default offset keyed by delivery method.
func EstimatedDelivery(order *models.Order) time.Time {
	if order.Logistics != nil && order.Logistics.EstimatedDelivery != nil {
		return *order.Logistics.EstimatedDelivery
	}
	for i := len(order.Tracking) - 1; i >= 0; i-- {
		if order.Tracking[i].EstimatedDelivery != nil {
			return *order.Tracking[i].EstimatedDelivery
		}
	}
	days := 3
	switch order.DeliveryMethod {
	case models.DeliveryPickup:
		days = 1
	case models.DeliveryHome:
		days = 2
	case models.DeliveryShipping:
		days = 5
	}
	return time.Now().AddDate(0, 0, days)
}
