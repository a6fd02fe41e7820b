package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"mandi/apperr"
	"mandi/db"
	"mandi/farms"
	"mandi/locks"
	"mandi/models"
	"mandi/mq"
	"mandi/orders"
	"mandi/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// LoadSubscription fetches one subscription aggregate by its identifier.
func LoadSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.SubscriptionsCollection.FindOne(ctx, bson.M{"subscriptionId": subscriptionID}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "subscription %s", subscriptionID)
		}
		return nil, err
	}
	return &sub, nil
}

func saveSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := db.SubscriptionsCollection.ReplaceOne(ctx, bson.M{"subscriptionId": sub.SubscriptionID}, sub)
	return err
}

func isAdminUser(ctx context.Context, userID string) bool {
	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		return false
	}
	return user.IsAdmin()
}

// isPartyOrAdmin gates mutations to the customer, the farmer, or an admin.
func isPartyOrAdmin(ctx context.Context, sub *models.Subscription, userID string) bool {
	return sub.CustomerID == userID || sub.FarmerID == userID || isAdminUser(ctx, userID)
}

// CreateSubscription handles POST /api/subscriptions.
func CreateSubscription(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var sub models.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid JSON body"})
		return
	}
	sub.CustomerID = requestingUserID

	if err := NewSubscription(&sub); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if _, err := db.SubscriptionsCollection.InsertOne(r.Context(), sub); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to insert subscription"})
		return
	}

	go mq.SendNotification(sub.FarmerID, "subscription", "subscription", sub.SubscriptionID, "A new recurring subscription was created for your farm")
	go mq.Emit(r.Context(), "subscription-created", models.Index{EntityType: "subscription", EntityId: sub.SubscriptionID, Method: "POST"})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscriptionId": sub.SubscriptionID, "subscription": sub})
}

// GetSubscription handles GET /api/subscriptions/:id.
func GetSubscription(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sub, err := LoadSubscription(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscription": sub})
}

// subscriptionPatch is the allowed-field patch for updates. Frequency
// changes go through here too and trigger a reschedule.
type subscriptionPatch struct {
	Title               *string                   `json:"title"`
	Description         *string                   `json:"description"`
	Items               []models.SubscriptionItem `json:"items"`
	DeliveryAddress     *string                   `json:"deliveryAddress"`
	DeliveryWindow      *string                   `json:"deliveryWindow"`
	PerDeliveryBudget   *float64                  `json:"perDeliveryBudget"`
	MonthlyBudget       *float64                  `json:"monthlyBudget"`
	Flexibility         *string                   `json:"flexibility"`
	Notifications       *bool                     `json:"notifications"`
	Notes               *string                   `json:"notes"`
	Frequency           *models.Frequency         `json:"frequency"`
	CustomFrequencyDays *int                      `json:"customFrequencyDays"`
	AvoidDates          []string                  `json:"avoidDates"`
}

// UpdateSubscription handles PATCH /api/subscriptions/:id.
func UpdateSubscription(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var patch subscriptionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid JSON body"})
		return
	}

	subscriptionID := ps.ByName("id")
	locks.Subscriptions.Lock(subscriptionID)
	defer locks.Subscriptions.Unlock(subscriptionID)

	sub, err := LoadSubscription(r.Context(), subscriptionID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if !isPartyOrAdmin(r.Context(), sub, requestingUserID) {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not a party to this subscription"})
		return
	}
	if sub.Status == models.SubscriptionCancelled {
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"success": false, "message": "Cancelled subscriptions cannot be updated"})
		return
	}

	if patch.Title != nil {
		sub.Title = *patch.Title
	}
	if patch.Description != nil {
		sub.Description = *patch.Description
	}
	if len(patch.Items) > 0 {
		sub.Items = patch.Items
	}
	if patch.DeliveryAddress != nil {
		sub.DeliveryAddress = *patch.DeliveryAddress
	}
	if patch.DeliveryWindow != nil {
		sub.DeliveryWindow = *patch.DeliveryWindow
	}
	if patch.PerDeliveryBudget != nil {
		sub.PerDeliveryBudget = *patch.PerDeliveryBudget
	}
	if patch.MonthlyBudget != nil {
		sub.MonthlyBudget = *patch.MonthlyBudget
	}
	if patch.Flexibility != nil {
		sub.Flexibility = *patch.Flexibility
	}
	if patch.Notifications != nil {
		sub.Notifications = *patch.Notifications
	}
	if patch.Notes != nil {
		sub.Notes = *patch.Notes
	}
	if len(patch.AvoidDates) > 0 {
		sub.AvoidDates = sub.AvoidDates[:0]
		for _, s := range patch.AvoidDates {
			if d := utils.ParseDate(s); d != nil {
				sub.AvoidDates = append(sub.AvoidDates, *d)
			}
		}
	}

	reschedule := false
	if patch.CustomFrequencyDays != nil {
		sub.CustomFrequencyDays = *patch.CustomFrequencyDays
		reschedule = true
	}
	if patch.Frequency != nil && *patch.Frequency != sub.Frequency {
		sub.Frequency = *patch.Frequency
		reschedule = true
	}
	if err := ValidateSubscriptionInput(sub); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if reschedule {
		sub.NextDeliveryDate = nil
		if _, err := NextDeliveryDate(sub); err != nil {
			utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
			return
		}
	}

	if err := saveSubscription(r.Context(), sub); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save subscription"})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscription": sub})
}

// PauseSubscription handles POST /api/subscriptions/:id/pause.
func PauseSubscription(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	subscriptionID := ps.ByName("id")
	locks.Subscriptions.Lock(subscriptionID)
	defer locks.Subscriptions.Unlock(subscriptionID)

	sub, err := LoadSubscription(r.Context(), subscriptionID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if !isPartyOrAdmin(r.Context(), sub, requestingUserID) {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not a party to this subscription"})
		return
	}

	if err := Pause(sub, body.Reason, requestingUserID); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := saveSubscription(r.Context(), sub); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save subscription"})
		return
	}

	go mq.SendNotification(sub.FarmerID, "subscription", "subscription", sub.SubscriptionID, "A subscription to your farm was paused")

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscription": sub})
}

// ResumeSubscription handles POST /api/subscriptions/:id/resume.
func ResumeSubscription(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	subscriptionID := ps.ByName("id")
	locks.Subscriptions.Lock(subscriptionID)
	defer locks.Subscriptions.Unlock(subscriptionID)

	sub, err := LoadSubscription(r.Context(), subscriptionID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if !isPartyOrAdmin(r.Context(), sub, requestingUserID) {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not a party to this subscription"})
		return
	}

	if err := Resume(sub); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := saveSubscription(r.Context(), sub); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save subscription"})
		return
	}

	go mq.SendNotification(sub.FarmerID, "subscription", "subscription", sub.SubscriptionID, "A subscription to your farm was resumed")

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscription": sub})
}

// CancelSubscriptionHandler handles POST /api/subscriptions/:id/cancel.
func CancelSubscriptionHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var body struct {
		Reason       string  `json:"reason"`
		RefundAmount float64 `json:"refundAmount"`
		Feedback     bool    `json:"feedbackProvided"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	subscriptionID := ps.ByName("id")
	locks.Subscriptions.Lock(subscriptionID)
	defer locks.Subscriptions.Unlock(subscriptionID)

	sub, err := LoadSubscription(r.Context(), subscriptionID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if !isPartyOrAdmin(r.Context(), sub, requestingUserID) {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not a party to this subscription"})
		return
	}

	if err := CancelSubscription(sub, body.Reason, requestingUserID, body.RefundAmount, body.Feedback); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := saveSubscription(r.Context(), sub); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save subscription"})
		return
	}

	go mq.SendNotification(sub.FarmerID, "subscription", "subscription", sub.SubscriptionID, "A subscription to your farm was cancelled")

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscription": sub})
}

// ProcessDelivery handles POST /api/subscriptions/:id/deliveries. It turns the
// subscription template into a concrete pending order, then updates the
// subscription. The two writes are one logical unit: if the second fails
// the orphaned order is logged for manual repair so a retry cannot
// double-deliver silently.
func ProcessDelivery(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	subscriptionID := ps.ByName("id")
	locks.Subscriptions.Lock(subscriptionID)
	defer locks.Subscriptions.Unlock(subscriptionID)

	sub, err := LoadSubscription(r.Context(), subscriptionID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := CanProcessDelivery(sub, requestingUserID, isAdminUser(r.Context(), requestingUserID)); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	lookup := func(cropID string) (*models.Crop, error) {
		crop, err := farms.LookupCrop(r.Context(), cropID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrNotFound, "crop %s", cropID)
		}
		return crop, nil
	}

	order, skipped, err := BuildDeliveryOrder(sub, lookup)
	if err != nil {
		sub.Metrics.MissedDeliveries++
		if saveErr := saveSubscription(r.Context(), sub); saveErr != nil {
			log.Printf("[ProcessDelivery] failed to record missed delivery on %s: %v", sub.SubscriptionID, saveErr)
		}
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error(), "skipped": skipped})
		return
	}

	orders.NewOrder(order, requestingUserID)

	if _, err := db.OrdersCollection.InsertOne(r.Context(), order); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to create delivery order"})
		return
	}

	if err := RecordDelivery(sub, order); err != nil {
		log.Printf("[ProcessDelivery] orphaned order %s: subscription %s update failed: %v", order.OrderID, sub.SubscriptionID, err)
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error(), "orphanedOrderId": order.OrderID})
		return
	}
	if err := saveSubscription(r.Context(), sub); err != nil {
		// The order exists but the subscription does not know about it.
		// Reconciliation is manual; the log line carries both IDs.
		log.Printf("[ProcessDelivery] orphaned order %s: subscription %s save failed: %v", order.OrderID, sub.SubscriptionID, err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save subscription", "orphanedOrderId": order.OrderID})
		return
	}

	go mq.SendNotification(sub.CustomerID, "subscription", "order", order.OrderID, "Your recurring delivery has been scheduled")

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":      true,
		"order":        order,
		"skipped":      skipped,
		"subscription": sub,
	})
}

// RateDelivery handles POST /api/subscriptions/:id/rating. Ratings always
// land on the most recent delivery.
func RateDelivery(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var body struct {
		Rating   int    `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid JSON body"})
		return
	}

	subscriptionID := ps.ByName("id")
	locks.Subscriptions.Lock(subscriptionID)
	defer locks.Subscriptions.Unlock(subscriptionID)

	sub, err := LoadSubscription(r.Context(), subscriptionID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if sub.CustomerID != requestingUserID {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Only the customer can rate deliveries"})
		return
	}

	if err := UpdateSatisfactionRating(sub, body.Rating, body.Feedback); err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}

	if err := saveSubscription(r.Context(), sub); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to save subscription"})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "metrics": sub.Metrics})
}
