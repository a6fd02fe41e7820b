package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyCustom    Frequency = "custom"
)

// SubscriptionItem is a recurring line template. MaxPricePerUnit is a
// ceiling to validate the live catalog price against, not the charged price.
type SubscriptionItem struct {
	CropID              string   `json:"cropId" bson:"cropId"`
	Name                string   `json:"name" bson:"name"`
	Quantity            int      `json:"quantity" bson:"quantity"`
	MaxPricePerUnit     float64  `json:"maxPricePerUnit" bson:"maxPricePerUnit"`
	SubstitutionAllowed bool     `json:"substitutionAllowed" bson:"substitutionAllowed"`
	Substitutes         []string `json:"substitutes,omitempty" bson:"substitutes,omitempty"`
	SeasonalMinQty      *int     `json:"seasonalMinQty,omitempty" bson:"seasonalMinQty,omitempty"`
	SeasonalMaxQty      *int     `json:"seasonalMaxQty,omitempty" bson:"seasonalMaxQty,omitempty"`
}

type DeliveredItem struct {
	CropID    string  `json:"cropId" bson:"cropId"`
	Name      string  `json:"name" bson:"name"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	UnitPrice float64 `json:"unitPrice" bson:"unitPrice"`
}

type SatisfactionRating struct {
	Rating   int       `json:"rating" bson:"rating"`
	Feedback string    `json:"feedback,omitempty" bson:"feedback,omitempty"`
	RatedAt  time.Time `json:"ratedAt" bson:"ratedAt"`
}

type DeliveryRecord struct {
	OrderID       string              `json:"orderId" bson:"orderId"`
	DeliveredDate time.Time           `json:"deliveredDate" bson:"deliveredDate"`
	Amount        float64             `json:"amount" bson:"amount"`
	Items         []DeliveredItem     `json:"items" bson:"items"`
	Satisfaction  *SatisfactionRating `json:"satisfaction,omitempty" bson:"satisfaction,omitempty"`
}

type PauseRecord struct {
	PausedDate  time.Time  `json:"pausedDate" bson:"pausedDate"`
	ResumedDate *time.Time `json:"resumedDate,omitempty" bson:"resumedDate,omitempty"`
	Reason      string     `json:"reason,omitempty" bson:"reason,omitempty"`
	ActorID     string     `json:"actorId" bson:"actorId"`
}

type CancellationDetails struct {
	Date             time.Time `json:"date" bson:"date"`
	Reason           string    `json:"reason,omitempty" bson:"reason,omitempty"`
	ActorID          string    `json:"actorId" bson:"actorId"`
	RefundAmount     float64   `json:"refundAmount" bson:"refundAmount"`
	FeedbackProvided bool      `json:"feedbackProvided" bson:"feedbackProvided"`
}

type SubscriptionMetrics struct {
	TotalOrders       int     `json:"totalOrders" bson:"totalOrders"`
	TotalSpent        float64 `json:"totalSpent" bson:"totalSpent"`
	AverageOrderValue float64 `json:"averageOrderValue" bson:"averageOrderValue"`
	SatisfactionScore float64 `json:"satisfactionScore" bson:"satisfactionScore"`
	MissedDeliveries  int     `json:"missedDeliveries" bson:"missedDeliveries"`
	PausedDays        int     `json:"pausedDays" bson:"pausedDays"`
}

type Subscription struct {
	SubscriptionID string `json:"subscriptionId" bson:"subscriptionId"`
	CustomerID     string `json:"customerId" bson:"customerId"`
	FarmerID       string `json:"farmerId" bson:"farmerId"`
	Title          string `json:"title,omitempty" bson:"title,omitempty"`
	Description    string `json:"description,omitempty" bson:"description,omitempty"`

	Items []SubscriptionItem `json:"items" bson:"items"`

	Frequency           Frequency   `json:"frequency" bson:"frequency"`
	CustomFrequencyDays int         `json:"customFrequencyDays,omitempty" bson:"customFrequencyDays,omitempty"`
	PreferredDays       []string    `json:"preferredDays,omitempty" bson:"preferredDays,omitempty"`
	PreferredTime       string      `json:"preferredTime,omitempty" bson:"preferredTime,omitempty"`
	AvoidDates          []time.Time `json:"avoidDates,omitempty" bson:"avoidDates,omitempty"`

	Status SubscriptionStatus `json:"status" bson:"status"`

	PerDeliveryBudget  float64 `json:"perDeliveryBudget,omitempty" bson:"perDeliveryBudget,omitempty"`
	MonthlyBudget      float64 `json:"monthlyBudget,omitempty" bson:"monthlyBudget,omitempty"`
	BaseDeliveryFee    float64 `json:"baseDeliveryFee" bson:"baseDeliveryFee"`
	DiscountPercentage float64 `json:"discountPercentage" bson:"discountPercentage"`
	LoyaltyDiscount    float64 `json:"loyaltyDiscount,omitempty" bson:"loyaltyDiscount,omitempty"`

	DeliveryAddress string `json:"deliveryAddress" bson:"deliveryAddress"`
	DeliveryWindow  string `json:"deliveryWindow,omitempty" bson:"deliveryWindow,omitempty"`
	Flexibility     string `json:"flexibility,omitempty" bson:"flexibility,omitempty"`
	Notifications   bool   `json:"notifications" bson:"notifications"`
	Notes           string `json:"notes,omitempty" bson:"notes,omitempty"`

	StartDate time.Time  `json:"startDate" bson:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	// NextDeliveryDate is the single mutable scheduling cursor.
	NextDeliveryDate *time.Time `json:"nextDeliveryDate,omitempty" bson:"nextDeliveryDate,omitempty"`
	LastDeliveryDate *time.Time `json:"lastDeliveryDate,omitempty" bson:"lastDeliveryDate,omitempty"`

	DeliveryHistory []DeliveryRecord     `json:"deliveryHistory,omitempty" bson:"deliveryHistory,omitempty"`
	PauseHistory    []PauseRecord        `json:"pauseHistory,omitempty" bson:"pauseHistory,omitempty"`
	Cancellation    *CancellationDetails `json:"cancellation,omitempty" bson:"cancellation,omitempty"`
	Metrics         SubscriptionMetrics  `json:"metrics" bson:"metrics"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
