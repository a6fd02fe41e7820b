package subscriptions

import (
	"testing"
	"time"

	"mandi/apperr"
	"mandi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeWeekly() *models.Subscription {
	cursor := date(2026, 3, 9)
	return &models.Subscription{
		SubscriptionID:   "sub_test",
		CustomerID:       "cust_1",
		FarmerID:         "farmer_1",
		Status:           models.SubscriptionActive,
		Frequency:        models.FrequencyWeekly,
		NextDeliveryDate: &cursor,
		DeliveryAddress:  "12 Market Lane",
		Items: []models.SubscriptionItem{
			{CropID: "crop_tomato", Name: "Tomato", Quantity: 2, MaxPricePerUnit: 50},
		},
	}
}

func TestNewSubscriptionSeedsCursorFromStartDate(t *testing.T) {
	sub := activeWeekly()
	sub.SubscriptionID = ""
	sub.NextDeliveryDate = nil
	sub.StartDate = date(2026, 3, 2)

	require.NoError(t, NewSubscription(sub))
	assert.NotEmpty(t, sub.SubscriptionID)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.NextDeliveryDate)
	assert.True(t, sub.NextDeliveryDate.Equal(date(2026, 3, 9)))
}

func TestPauseAndResume(t *testing.T) {
	sub := activeWeekly()
	prePause := *sub.NextDeliveryDate

	require.NoError(t, Pause(sub, "travelling", "cust_1"))
	assert.Equal(t, models.SubscriptionPaused, sub.Status)
	require.Len(t, sub.PauseHistory, 1)
	assert.Nil(t, sub.PauseHistory[0].ResumedDate)

	// Simulate a pause a little under five days long; whole days round up.
	sub.PauseHistory[0].PausedDate = time.Now().Add(-5*24*time.Hour + time.Minute)

	require.NoError(t, Resume(sub))
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.PauseHistory[0].ResumedDate)
	assert.Equal(t, 5, sub.Metrics.PausedDays)

	// The cursor advances from where it was before the pause, paused time
	// is not credited toward the cadence.
	require.NotNil(t, sub.NextDeliveryDate)
	assert.True(t, sub.NextDeliveryDate.Equal(prePause.AddDate(0, 0, 7)))
}

func TestPauseRequiresActive(t *testing.T) {
	sub := activeWeekly()
	sub.Status = models.SubscriptionCancelled
	err := Pause(sub, "", "cust_1")
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestResumeRequiresPaused(t *testing.T) {
	sub := activeWeekly()
	err := Resume(sub)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestCancelIsTerminal(t *testing.T) {
	sub := activeWeekly()
	require.NoError(t, CancelSubscription(sub, "moved away", "cust_1", 120.50, true))
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
	require.NotNil(t, sub.Cancellation)
	assert.Equal(t, 120.50, sub.Cancellation.RefundAmount)

	err := CancelSubscription(sub, "again", "cust_1", 0, false)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestMaybeExpire(t *testing.T) {
	sub := activeWeekly()
	end := time.Now().Add(-time.Hour)
	sub.EndDate = &end

	assert.True(t, MaybeExpire(sub, time.Now()))
	assert.Equal(t, models.SubscriptionExpired, sub.Status)
	// Second call is a no-op.
	assert.False(t, MaybeExpire(sub, time.Now()))
}

func catalog(crops map[string]*models.Crop) CropLookup {
	return func(cropID string) (*models.Crop, error) {
		crop, ok := crops[cropID]
		if !ok {
			return nil, apperr.Wrap(apperr.ErrNotFound, "crop %s not found", cropID)
		}
		return crop, nil
	}
}

func TestBuildDeliveryOrderChargesLivePrices(t *testing.T) {
	sub := activeWeekly()
	sub.BaseDeliveryFee = 20
	sub.DiscountPercentage = 10

	lookup := catalog(map[string]*models.Crop{
		"crop_tomato": {CropID: "crop_tomato", Name: "Tomato", Price: 40},
	})

	order, skipped, err := BuildDeliveryOrder(sub, lookup)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 80.0, order.Subtotal)
	assert.Equal(t, 8.0, order.Discount)
	assert.Equal(t, 92.0, order.Total)
	assert.True(t, order.IsRecurring)
	assert.Equal(t, sub.SubscriptionID, order.SubscriptionID)
}

func TestBuildDeliveryOrderSubstitutesOverCeiling(t *testing.T) {
	sub := activeWeekly()
	sub.Items[0].SubstitutionAllowed = true
	sub.Items[0].Substitutes = []string{"crop_cherry"}

	lookup := catalog(map[string]*models.Crop{
		"crop_tomato": {CropID: "crop_tomato", Name: "Tomato", Price: 75}, // over the 50 ceiling
		"crop_cherry": {CropID: "crop_cherry", Name: "Cherry Tomato", Price: 45},
	})

	order, skipped, err := BuildDeliveryOrder(sub, lookup)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, "crop_cherry", order.Items[0].CropID)
	assert.Equal(t, 45.0, order.Items[0].UnitPrice)
}

func TestBuildDeliveryOrderSkipsWithoutSubstitution(t *testing.T) {
	sub := activeWeekly()
	sub.Items = append(sub.Items, models.SubscriptionItem{
		CropID: "crop_okra", Name: "Okra", Quantity: 1, MaxPricePerUnit: 30,
	})

	lookup := catalog(map[string]*models.Crop{
		"crop_tomato": {CropID: "crop_tomato", Name: "Tomato", Price: 75}, // over ceiling, no substitutes
		"crop_okra":   {CropID: "crop_okra", Name: "Okra", Price: 25},
	})

	order, skipped, err := BuildDeliveryOrder(sub, lookup)
	require.NoError(t, err)
	assert.Equal(t, []string{"crop_tomato"}, skipped)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "crop_okra", order.Items[0].CropID)
}

func TestBuildDeliveryOrderFailsWhenNothingDeliverable(t *testing.T) {
	sub := activeWeekly()
	lookup := catalog(map[string]*models.Crop{
		"crop_tomato": {CropID: "crop_tomato", Name: "Tomato", Price: 40, OutOfStock: true},
	})

	_, skipped, err := BuildDeliveryOrder(sub, lookup)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, []string{"crop_tomato"}, skipped)
}

func TestRecordDeliveryUpdatesMetricsAndCursor(t *testing.T) {
	sub := activeWeekly()
	preCursor := *sub.NextDeliveryDate

	order := &models.Order{
		OrderID: "order_1",
		Total:   92,
		Items: []models.OrderItem{
			{CropID: "crop_tomato", Name: "Tomato", Quantity: 2, UnitPrice: 40},
		},
	}

	require.NoError(t, RecordDelivery(sub, order))
	require.Len(t, sub.DeliveryHistory, 1)
	assert.Equal(t, "order_1", sub.DeliveryHistory[0].OrderID)
	assert.Equal(t, 1, sub.Metrics.TotalOrders)
	assert.Equal(t, 92.0, sub.Metrics.TotalSpent)
	assert.Equal(t, 92.0, sub.Metrics.AverageOrderValue)
	require.NotNil(t, sub.LastDeliveryDate)
	assert.True(t, sub.NextDeliveryDate.Equal(preCursor.AddDate(0, 0, 7)))
}

func TestCanProcessDelivery(t *testing.T) {
	sub := activeWeekly()

	assert.NoError(t, CanProcessDelivery(sub, "farmer_1", false))
	assert.NoError(t, CanProcessDelivery(sub, "someone_else", true))
	assert.ErrorIs(t, CanProcessDelivery(sub, "someone_else", false), apperr.ErrPermissionDenied)

	sub.Status = models.SubscriptionPaused
	assert.ErrorIs(t, CanProcessDelivery(sub, "farmer_1", false), apperr.ErrStateConflict)
}

func TestUpdateSatisfactionRating(t *testing.T) {
	sub := activeWeekly()
	sub.DeliveryHistory = []models.DeliveryRecord{
		{OrderID: "order_1", DeliveredDate: date(2026, 3, 9)},
		{OrderID: "order_2", DeliveredDate: date(2026, 3, 16)},
	}
	sub.DeliveryHistory[0].Satisfaction = &models.SatisfactionRating{Rating: 5}
	sub.Metrics.SatisfactionScore = 5.0

	require.NoError(t, UpdateSatisfactionRating(sub, 3, "bruised fruit"))
	require.NotNil(t, sub.DeliveryHistory[1].Satisfaction)
	assert.Equal(t, 3, sub.DeliveryHistory[1].Satisfaction.Rating)
	// Mean over rated entries: (5 + 3) / 2.
	assert.Equal(t, 4.0, sub.Metrics.SatisfactionScore)
}

func TestUpdateSatisfactionRatingGuards(t *testing.T) {
	sub := activeWeekly()
	assert.ErrorIs(t, UpdateSatisfactionRating(sub, 4, ""), apperr.ErrStateConflict)

	sub.DeliveryHistory = []models.DeliveryRecord{{OrderID: "order_1"}}
	assert.ErrorIs(t, UpdateSatisfactionRating(sub, 0, ""), apperr.ErrValidation)
	assert.ErrorIs(t, UpdateSatisfactionRating(sub, 6, ""), apperr.ErrValidation)
}
