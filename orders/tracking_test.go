package orders

import (
	"errors"
	"testing"
	"time"

	"mandi/apperr"
	"mandi/models"
)

func newTestOrder() *models.Order {
	order := &models.Order{
		BuyerID:  "buyer_1",
		FarmerID: "farmer_1",
		Items: []models.OrderItem{
			{CropID: "crop_tomato", Name: "Tomato", Quantity: 2, UnitPrice: 40, Total: 80},
		},
		DeliveryMethod: models.DeliveryHome,
	}
	NewOrder(order, "buyer_1")
	return order
}

func TestNewOrderSynthesizesPendingEntry(t *testing.T) {
	order := newTestOrder()
	if order.OrderID == "" {
		t.Fatal("expected an order ID")
	}
	if len(order.Tracking) != 1 {
		t.Fatalf("expected one tracking entry, got %d", len(order.Tracking))
	}
	if order.CurrentStatus != models.OrderPending {
		t.Fatalf("expected pending, got %s", order.CurrentStatus)
	}
}

func TestAddTrackingUpdateMirrorsCurrentStatus(t *testing.T) {
	order := newTestOrder()
	steps := []models.OrderStatus{
		models.OrderConfirmed,
		models.OrderPreparing,
		models.OrderPacked,
		models.OrderShipped,
		models.OrderOutForDelivery,
		models.OrderDelivered,
	}

	for _, status := range steps {
		msg, err := AddTrackingUpdate(order, status, "", "", "farmer_1", nil, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", status, err)
		}
		if msg == "" {
			t.Fatalf("%s: expected a notification message", status)
		}
		tail := order.Tracking[len(order.Tracking)-1].Status
		if order.CurrentStatus != tail {
			t.Fatalf("currentStatus %s does not mirror log tail %s", order.CurrentStatus, tail)
		}
	}

	if len(order.Tracking) != 1+len(steps) {
		t.Fatalf("expected %d entries, got %d", 1+len(steps), len(order.Tracking))
	}
	if len(order.Notifications) != len(steps) {
		t.Fatalf("expected %d notification records, got %d", len(steps), len(order.Notifications))
	}
}

func TestAddTrackingUpdateRejectsUnknownStatus(t *testing.T) {
	order := newTestOrder()
	_, err := AddTrackingUpdate(order, models.OrderStatus("teleported"), "", "", "farmer_1", nil, nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(order.Tracking) != 1 {
		t.Fatal("rejected update must not append to the log")
	}
}

func TestLifecycleStampsAreWriteOnce(t *testing.T) {
	order := newTestOrder()
	mustUpdate := func(status models.OrderStatus) {
		t.Helper()
		if _, err := AddTrackingUpdate(order, status, "", "", "farmer_1", nil, nil); err != nil {
			t.Fatalf("%s: %v", status, err)
		}
	}

	mustUpdate(models.OrderShipped)
	mustUpdate(models.OrderDelivered)
	firstDelivered := *order.DeliveredAt

	// Support correction: the buyer returned it, it ships and delivers again.
	mustUpdate(models.OrderReturned)
	mustUpdate(models.OrderShipped)
	mustUpdate(models.OrderDelivered)

	if !order.DeliveredAt.Equal(firstDelivered) {
		t.Fatalf("deliveredAt moved from %v to %v", firstDelivered, order.DeliveredAt)
	}
	if order.CurrentStatus != models.OrderDelivered {
		t.Fatalf("expected delivered, got %s", order.CurrentStatus)
	}
}

func TestCancelOnlyFromEarlyStatuses(t *testing.T) {
	order := newTestOrder()
	if _, err := Cancel(order, "changed my mind", "buyer_1"); err != nil {
		t.Fatalf("cancel from pending failed: %v", err)
	}
	if order.CurrentStatus != models.OrderCancelled {
		t.Fatalf("expected cancelled, got %s", order.CurrentStatus)
	}
	if order.CancelledAt == nil {
		t.Fatal("expected cancelledAt stamp")
	}

	shipped := newTestOrder()
	if _, err := AddTrackingUpdate(shipped, models.OrderShipped, "", "", "farmer_1", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := Cancel(shipped, "", "buyer_1"); !errors.Is(err, apperr.ErrStateConflict) {
		t.Fatalf("expected state conflict for shipped order, got %v", err)
	}
}

func TestRateRequiresDeliveredAndBuyer(t *testing.T) {
	order := newTestOrder()

	if err := Rate(order, "buyer_1", 4, "", nil); !errors.Is(err, apperr.ErrStateConflict) {
		t.Fatalf("expected state conflict before delivery, got %v", err)
	}

	if _, err := AddTrackingUpdate(order, models.OrderDelivered, "", "", "farmer_1", nil, nil); err != nil {
		t.Fatal(err)
	}

	if err := Rate(order, "farmer_1", 4, "", nil); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for non-buyer, got %v", err)
	}
	if err := Rate(order, "buyer_1", 9, "", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for rating 9, got %v", err)
	}

	if err := Rate(order, "buyer_1", 4, "fresh and fast", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Re-rating overwrites.
	if err := Rate(order, "buyer_1", 2, "second thoughts", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Rating.Rating != 2 {
		t.Fatalf("expected overwritten rating 2, got %d", order.Rating.Rating)
	}
}

func TestEstimatedDeliveryPrecedence(t *testing.T) {
	order := newTestOrder()

	// Method default: home delivery lands about two days out.
	eta := EstimatedDelivery(order)
	if d := time.Until(eta); d < 47*time.Hour || d > 49*time.Hour {
		t.Fatalf("expected default eta ~2 days out, got %v away", d)
	}

	// A tracking entry estimate takes over.
	entryETA := time.Now().AddDate(0, 0, 4)
	if _, err := AddTrackingUpdate(order, models.OrderShipped, "", "", "farmer_1", &entryETA, nil); err != nil {
		t.Fatal(err)
	}
	if got := EstimatedDelivery(order); !got.Equal(entryETA) {
		t.Fatalf("expected entry eta %v, got %v", entryETA, got)
	}

	// Logistics provider estimate wins over everything.
	providerETA := time.Now().AddDate(0, 0, 6)
	order.Logistics = &models.LogisticsInfo{Provider: "swifthaul", EstimatedDelivery: &providerETA}
	if got := EstimatedDelivery(order); !got.Equal(providerETA) {
		t.Fatalf("expected provider eta %v, got %v", providerETA, got)
	}
}

func TestStatusMessageFallback(t *testing.T) {
	if got := StatusMessage(models.OrderShipped); got != "Your order has been shipped" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := StatusMessage(models.OrderStatus("limbo")); got != "Your order status updated to limbo" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
