package subscriptions

import (
	"math"
	"time"

	"mandi/apperr"
	"mandi/models"
	"mandi/utils"
)

// NewSubscription initializes the aggregate and seeds the scheduling cursor
// from the start date.
func NewSubscription(sub *models.Subscription) error {
	if err := ValidateSubscriptionInput(sub); err != nil {
		return err
	}
	now := time.Now()
	sub.SubscriptionID = utils.GenerateID(14)
	sub.Status = models.SubscriptionActive
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.StartDate.IsZero() {
		sub.StartDate = now
	}
	if sub.NextDeliveryDate == nil {
		anchor := sub.StartDate
		next, err := nextFromAnchor(sub, anchor)
		if err != nil {
			return err
		}
		sub.NextDeliveryDate = &next
	}
	return nil
}

func ValidateSubscriptionInput(sub *models.Subscription) error {
	if sub.CustomerID == "" || sub.FarmerID == "" {
		return apperr.Wrap(apperr.ErrValidation, "customer and farmer are required")
	}
	if len(sub.Items) == 0 {
		return apperr.Wrap(apperr.ErrValidation, "subscription must contain at least one item")
	}
	for _, item := range sub.Items {
		if item.Quantity < 1 {
			return apperr.Wrap(apperr.ErrValidation, "item quantity must be at least 1")
		}
		if item.MaxPricePerUnit < 0 {
			return apperr.Wrap(apperr.ErrValidation, "price ceiling must be non-negative")
		}
	}
	switch sub.Frequency {
	case models.FrequencyWeekly, models.FrequencyBiweekly, models.FrequencyMonthly, models.FrequencyQuarterly:
	case models.FrequencyCustom:
		if sub.CustomFrequencyDays <= 0 {
			return apperr.Wrap(apperr.ErrConfiguration, "custom frequency requires a positive day count")
		}
	default:
		return apperr.Wrap(apperr.ErrValidation, "unsupported frequency %q", sub.Frequency)
	}
	if sub.DeliveryAddress == "" {
		return apperr.Wrap(apperr.ErrValidation, "delivery address is required")
	}
	return nil
}

// MaybeExpire lazily flips a live subscription to expired once its end date
// has passed. There is no periodic sweep; every read and mutation path calls
// this before acting. Returns true when the status changed.
func MaybeExpire(sub *models.Subscription, now time.Time) bool {
	if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionPaused {
		return false
	}
	if sub.EndDate == nil || now.Before(*sub.EndDate) {
		return false
	}
	sub.Status = models.SubscriptionExpired
	sub.UpdatedAt = now
	return true
}

// Pause suspends an active subscription and opens a pause-history entry.
func Pause(sub *models.Subscription, reason, actorID string) error {
	MaybeExpire(sub, time.Now())
	if sub.Status != models.SubscriptionActive {
		return apperr.Wrap(apperr.ErrStateConflict, "subscription %s is %s, not active", sub.SubscriptionID, sub.Status)
	}
	now := time.Now()
	sub.Status = models.SubscriptionPaused
	sub.PauseHistory = append(sub.PauseHistory, models.PauseRecord{
		PausedDate: now,
		Reason:     reason,
		ActorID:    actorID,
	})
	sub.UpdatedAt = now
	return nil
}

// Resume closes the open pause-history entry, accounts the paused days
// (whole days, rounded up), and advances the cursor forward from wherever
// it was. Paused time is not credited toward the cadence.
func Resume(sub *models.Subscription) error {
	if sub.Status != models.SubscriptionPaused {
		return apperr.Wrap(apperr.ErrStateConflict, "subscription %s is %s, not paused", sub.SubscriptionID, sub.Status)
	}
	now := time.Now()

	for i := len(sub.PauseHistory) - 1; i >= 0; i-- {
		if sub.PauseHistory[i].ResumedDate == nil {
			resumed := now
			sub.PauseHistory[i].ResumedDate = &resumed
			days := int(math.Ceil(now.Sub(sub.PauseHistory[i].PausedDate).Hours() / 24))
			if days > 0 {
				sub.Metrics.PausedDays += days
			}
			break
		}
	}

	sub.Status = models.SubscriptionActive
	sub.UpdatedAt = now
	if _, err := NextDeliveryDate(sub); err != nil {
		return err
	}
	return nil
}

// CancelSubscription is terminal. A second cancel attempt is rejected so
// refund bookkeeping cannot run twice.
func CancelSubscription(sub *models.Subscription, reason, actorID string, refundAmount float64, feedbackProvided bool) error {
	if sub.Status == models.SubscriptionCancelled {
		return apperr.Wrap(apperr.ErrStateConflict, "subscription %s is already cancelled", sub.SubscriptionID)
	}
	now := time.Now()
	sub.Status = models.SubscriptionCancelled
	sub.Cancellation = &models.CancellationDetails{
		Date:             now,
		Reason:           reason,
		ActorID:          actorID,
		RefundAmount:     refundAmount,
		FeedbackProvided: feedbackProvided,
	}
	sub.UpdatedAt = now
	return nil
}

// CropLookup resolves the live catalog state of a crop reference.
type CropLookup func(cropID string) (*models.Crop, error)

// BuildDeliveryOrder materializes one delivery from the item templates,
// charging live catalog prices. A line whose live price exceeds its ceiling
// is substituted when allowed (first in-ceiling, in-stock substitute wins)
// and skipped otherwise. When nothing survives, the whole delivery fails.
func BuildDeliveryOrder(sub *models.Subscription, lookup CropLookup) (*models.Order, []string, error) {
	var items []models.OrderItem
	var skipped []string

	for _, tmpl := range sub.Items {
		crop, err := resolveLine(tmpl, lookup)
		if err != nil {
			skipped = append(skipped, tmpl.CropID)
			continue
		}
		lineTotal := float64(tmpl.Quantity) * crop.Price
		items = append(items, models.OrderItem{
			CropID:    crop.CropID,
			Name:      crop.Name,
			Quantity:  tmpl.Quantity,
			UnitPrice: crop.Price,
			Total:     lineTotal,
		})
	}

	if len(items) == 0 {
		return nil, skipped, apperr.Wrap(apperr.ErrValidation, "no subscription item is currently deliverable")
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.Total
	}
	discount := subtotal * sub.DiscountPercentage / 100
	total := subtotal + sub.BaseDeliveryFee - discount

	order := &models.Order{
		BuyerID:         sub.CustomerID,
		FarmerID:        sub.FarmerID,
		Items:           items,
		Subtotal:        subtotal,
		DeliveryFee:     sub.BaseDeliveryFee,
		Discount:        discount,
		Total:           total,
		DeliveryAddress: sub.DeliveryAddress,
		DeliveryMethod:  models.DeliveryHome,
		SubscriptionID:  sub.SubscriptionID,
		IsRecurring:     true,
	}
	return order, skipped, nil
}

// resolveLine returns the crop to charge for a template line, applying the
// price-ceiling and substitution rules.
func resolveLine(tmpl models.SubscriptionItem, lookup CropLookup) (*models.Crop, error) {
	crop, err := lookup(tmpl.CropID)
	if err == nil && !crop.OutOfStock && withinCeiling(tmpl, crop.Price) {
		return crop, nil
	}

	if tmpl.SubstitutionAllowed {
		for _, subID := range tmpl.Substitutes {
			alt, altErr := lookup(subID)
			if altErr == nil && !alt.OutOfStock && withinCeiling(tmpl, alt.Price) {
				return alt, nil
			}
		}
	}

	if err != nil {
		return nil, err
	}
	return nil, apperr.Wrap(apperr.ErrValidation, "crop %s unavailable or over ceiling", tmpl.CropID)
}

func withinCeiling(tmpl models.SubscriptionItem, price float64) bool {
	return tmpl.MaxPricePerUnit <= 0 || price <= tmpl.MaxPricePerUnit
}

// RecordDelivery finalizes a realized delivery on the subscription side:
// history entry, metrics, lastDeliveryDate, and the advanced cursor.
func RecordDelivery(sub *models.Subscription, order *models.Order) error {
	now := time.Now()

	delivered := make([]models.DeliveredItem, 0, len(order.Items))
	for _, item := range order.Items {
		delivered = append(delivered, models.DeliveredItem{
			CropID:    item.CropID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	sub.DeliveryHistory = append(sub.DeliveryHistory, models.DeliveryRecord{
		OrderID:       order.OrderID,
		DeliveredDate: now,
		Amount:        order.Total,
		Items:         delivered,
	})

	sub.Metrics.TotalOrders++
	sub.Metrics.TotalSpent += order.Total
	sub.Metrics.AverageOrderValue = sub.Metrics.TotalSpent / float64(sub.Metrics.TotalOrders)
	sub.LastDeliveryDate = &now
	sub.UpdatedAt = now

	_, err := NextDeliveryDate(sub)
	return err
}

// CanProcessDelivery checks the state and permission preconditions.
func CanProcessDelivery(sub *models.Subscription, actorID string, isAdmin bool) error {
	MaybeExpire(sub, time.Now())
	if sub.Status != models.SubscriptionActive {
		return apperr.Wrap(apperr.ErrStateConflict, "subscription %s is %s, not active", sub.SubscriptionID, sub.Status)
	}
	if sub.FarmerID != actorID && !isAdmin {
		return apperr.Wrap(apperr.ErrPermissionDenied, "only the farmer can process subscription %s", sub.SubscriptionID)
	}
	return nil
}

// UpdateSatisfactionRating attaches a rating to the most recent delivery
// and recomputes the satisfaction score as the mean over all rated
// deliveries. Entries without a rating count toward neither side.
func UpdateSatisfactionRating(sub *models.Subscription, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return apperr.Wrap(apperr.ErrValidation, "rating must be between 1 and 5")
	}
	if len(sub.DeliveryHistory) == 0 {
		return apperr.Wrap(apperr.ErrStateConflict, "subscription %s has no deliveries to rate", sub.SubscriptionID)
	}

	now := time.Now()
	last := &sub.DeliveryHistory[len(sub.DeliveryHistory)-1]
	last.Satisfaction = &models.SatisfactionRating{
		Rating:   rating,
		Feedback: feedback,
		RatedAt:  now,
	}

	// Full rescan, not a running average.
	var sum, count float64
	for _, rec := range sub.DeliveryHistory {
		if rec.Satisfaction != nil {
			sum += float64(rec.Satisfaction.Rating)
			count++
		}
	}
	if count > 0 {
		sub.Metrics.SatisfactionScore = sum / count
	}
	sub.UpdatedAt = now
	return nil
}
