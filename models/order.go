package models

import "time"

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderPacked         OrderStatus = "packed"
	OrderShipped        OrderStatus = "shipped"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderReturned       OrderStatus = "returned"
)

// IsTerminal reports whether no further tracking updates are accepted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderReturned
}

type DeliveryMethod string

const (
	DeliveryHome     DeliveryMethod = "home_delivery"
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryLocalHub DeliveryMethod = "local_hub"
	DeliveryShipping DeliveryMethod = "shipping"
)

type OrderItem struct {
	CropID       string  `json:"cropId" bson:"cropId"`
	Name         string  `json:"name" bson:"name"`
	Quantity     int     `json:"quantity" bson:"quantity"`
	UnitPrice    float64 `json:"unitPrice" bson:"unitPrice"`
	Total        float64 `json:"total" bson:"total"`
	Instructions string  `json:"instructions,omitempty" bson:"instructions,omitempty"`
}

type DriverInfo struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Phone   string `json:"phone,omitempty" bson:"phone,omitempty"`
	Vehicle string `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
}

// TrackingEntry is one event in the append-only tracking log. Entries are
// never mutated or reordered after append.
type TrackingEntry struct {
	Status            OrderStatus `json:"status" bson:"status"`
	Timestamp         time.Time   `json:"timestamp" bson:"timestamp"`
	Location          string      `json:"location,omitempty" bson:"location,omitempty"`
	Notes             string      `json:"notes,omitempty" bson:"notes,omitempty"`
	ActorID           string      `json:"actorId" bson:"actorId"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery,omitempty" bson:"estimatedDelivery,omitempty"`
	Driver            *DriverInfo `json:"driver,omitempty" bson:"driver,omitempty"`
}

type LogisticsInfo struct {
	Provider          string     `json:"provider,omitempty" bson:"provider,omitempty"`
	TrackingNumber    string     `json:"trackingNumber,omitempty" bson:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty" bson:"estimatedDelivery,omitempty"`
}

type OrderRating struct {
	Rating   int       `json:"rating" bson:"rating"`
	Feedback string    `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Photos   []string  `json:"photos,omitempty" bson:"photos,omitempty"`
	RatedAt  time.Time `json:"ratedAt" bson:"ratedAt"`
}

// NotificationRecord is the order-side audit of messages sent to the buyer.
type NotificationRecord struct {
	Status  OrderStatus `json:"status" bson:"status"`
	Message string      `json:"message" bson:"message"`
	SentAt  time.Time   `json:"sentAt" bson:"sentAt"`
}

type Order struct {
	OrderID         string         `json:"orderId" bson:"orderId"`
	BuyerID         string         `json:"buyerId" bson:"buyerId"`
	FarmerID        string         `json:"farmerId" bson:"farmerId"`
	Items           []OrderItem    `json:"items" bson:"items"`
	Subtotal        float64        `json:"subtotal" bson:"subtotal"`
	DeliveryFee     float64        `json:"deliveryFee" bson:"deliveryFee"`
	Tax             float64        `json:"tax" bson:"tax"`
	Discount        float64        `json:"discount" bson:"discount"`
	Total           float64        `json:"total" bson:"total"`
	DeliveryAddress string         `json:"deliveryAddress" bson:"deliveryAddress"`
	DeliveryMethod  DeliveryMethod `json:"deliveryMethod" bson:"deliveryMethod"`

	// Tracking is append-only; CurrentStatus always mirrors the status of
	// the last entry and is never set independently.
	Tracking      []TrackingEntry `json:"tracking" bson:"tracking"`
	CurrentStatus OrderStatus     `json:"currentStatus" bson:"currentStatus"`

	ConfirmedAt *time.Time `json:"confirmedAt,omitempty" bson:"confirmedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty" bson:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`

	Logistics      *LogisticsInfo       `json:"logistics,omitempty" bson:"logistics,omitempty"`
	Rating         *OrderRating         `json:"rating,omitempty" bson:"rating,omitempty"`
	Notifications  []NotificationRecord `json:"notifications,omitempty" bson:"notifications,omitempty"`
	SubscriptionID string               `json:"subscriptionId,omitempty" bson:"subscriptionId,omitempty"`
	IsRecurring    bool                 `json:"isRecurring,omitempty" bson:"isRecurring,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
