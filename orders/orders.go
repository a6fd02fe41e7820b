package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mandi/apperr"
	"mandi/db"
	"mandi/locks"
	"mandi/models"
	"mandi/mq"
	"mandi/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// LoadOrder fetches one order aggregate by its identifier.
func LoadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := db.OrdersCollection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "order %s", orderID)
		}
		return nil, err
	}
	// Re-validate the derived field on load so a stale document cannot
	// drift from the tail of its tracking log.
	if n := len(order.Tracking); n > 0 {
		order.CurrentStatus = order.Tracking[n-1].Status
	}
	return &order, nil
}

func saveOrder(ctx context.Context, order *models.Order) error {
	_, err := db.OrdersCollection.ReplaceOne(ctx, bson.M{"orderId": order.OrderID}, order)
	return err
}

// ValidateOrderInput checks the caller-supplied fields on creation.
func ValidateOrderInput(order *models.Order) error {
	if order.BuyerID == "" || order.FarmerID == "" {
		return apperr.Wrap(apperr.ErrValidation, "buyer and farmer are required")
	}
	if len(order.Items) == 0 {
		return apperr.Wrap(apperr.ErrValidation, "order must contain at least one item")
	}
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return apperr.Wrap(apperr.ErrValidation, "item quantity must be at least 1")
		}
		if item.UnitPrice < 0 || item.Total < 0 {
			return apperr.Wrap(apperr.ErrValidation, "item price must be non-negative")
		}
	}
	if order.Subtotal < 0 || order.DeliveryFee < 0 || order.Tax < 0 || order.Discount < 0 || order.Total < 0 {
		return apperr.Wrap(apperr.ErrValidation, "monetary fields must be non-negative")
	}
	if order.DeliveryMethod != models.DeliveryPickup && order.DeliveryAddress == "" {
		return apperr.Wrap(apperr.ErrValidation, "delivery address is required")
	}
	switch order.DeliveryMethod {
	case models.DeliveryHome, models.DeliveryPickup, models.DeliveryLocalHub, models.DeliveryShipping:
	default:
		return apperr.Wrap(apperr.ErrValidation, "unsupported delivery method %q", order.DeliveryMethod)
	}
	return nil
}

// CreateOrder handles POST /api/orders.
func CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid JSON body"})
		return
	}
	order.BuyerID = requestingUserID
	order.Tracking = nil

	if err := ValidateOrderInput(&order); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	NewOrder(&order, requestingUserID)

	if _, err := db.OrdersCollection.InsertOne(r.Context(), order); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to insert order"})
		return
	}

	go mq.SendNotification(order.FarmerID, "order", "order", order.OrderID, "You have received a new order")
	go mq.Emit(r.Context(), "order-created", models.Index{EntityType: "order", EntityId: order.OrderID, Method: "POST"})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "orderId": order.OrderID, "order": order})
}

// GetOrder handles GET /api/orders/:id.
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	order, err := LoadOrder(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": order})
}

type trackingUpdateRequest struct {
	Status            models.OrderStatus `json:"status"`
	Location          string             `json:"location"`
	Notes             string             `json:"notes"`
	EstimatedDelivery *time.Time         `json:"estimatedDelivery"`
	Driver            *models.DriverInfo `json:"driver"`
}

// TrackOrder handles POST /api/orders/:id/tracking. Only the farmer of
// record or an admin may push tracking updates.
func TrackOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var req trackingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid JSON body"})
		return
	}

	orderID := ps.ByName("id")
	locks.Orders.Lock(orderID)
	defer locks.Orders.Unlock(orderID)

	order, err := LoadOrder(r.Context(), orderID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	isAdmin := isAdminUser(r.Context(), requestingUserID)
	if order.FarmerID != requestingUserID && !isAdmin {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Only the farmer can update tracking"})
		return
	}

	// Terminal orders accept no further updates through this route.
	if order.CurrentStatus.IsTerminal() {
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"success": false, "message": "Order is in a terminal state"})
		return
	}

	message, err := AddTrackingUpdate(order, req.Status, req.Location, req.Notes, requestingUserID, req.EstimatedDelivery, req.Driver)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := saveOrder(r.Context(), order); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save order"})
		return
	}

	go mq.SendNotification(order.BuyerID, "order", "order", order.OrderID, message)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": order})
}

// CancelOrder handles POST /api/orders/:id/cancel. Buyer, farmer, or admin.
func CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	orderID := ps.ByName("id")
	locks.Orders.Lock(orderID)
	defer locks.Orders.Unlock(orderID)

	order, err := LoadOrder(r.Context(), orderID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if order.BuyerID != requestingUserID && order.FarmerID != requestingUserID && !isAdminUser(r.Context(), requestingUserID) {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not a party to this order"})
		return
	}

	message, err := Cancel(order, body.Reason, requestingUserID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := saveOrder(r.Context(), order); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save order"})
		return
	}

	go mq.SendNotification(order.BuyerID, "order", "order", order.OrderID, message)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": order})
}

// RateOrder handles POST /api/orders/:id/rating.
func RateOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var body struct {
		Rating   int      `json:"rating"`
		Feedback string   `json:"feedback"`
		Photos   []string `json:"photos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid JSON body"})
		return
	}

	orderID := ps.ByName("id")
	locks.Orders.Lock(orderID)
	defer locks.Orders.Unlock(orderID)

	order, err := LoadOrder(r.Context(), orderID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := Rate(order, requestingUserID, body.Rating, body.Feedback, body.Photos); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := saveOrder(r.Context(), order); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save order"})
		return
	}

	go mq.SendNotification(order.FarmerID, "order", "order", order.OrderID, "Your order received a rating")

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "rating": order.Rating})
}

// GetEstimatedDelivery handles GET /api/orders/:id/eta.
func GetEstimatedDelivery(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	order, err := LoadOrder(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":           true,
		"estimatedDelivery": EstimatedDelivery(order),
	})
}

func isAdminUser(ctx context.Context, userID string) bool {
	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		return false
	}
	return user.IsAdmin()
}
