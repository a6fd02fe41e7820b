package orders

import (
	"net/http"
	"time"

	"mandi/db"
	"mandi/models"
	"mandi/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindByTrackingReference handles GET /api/tracking/:ref. The reference
// can be either an order ID or a logistics tracking number.
func FindByTrackingReference(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ref := ps.ByName("ref")
	if ref == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Missing tracking reference"})
		return
	}

	filter := bson.M{"$or": []bson.M{
		{"orderId": ref},
		{"logistics.trackingNumber": ref},
	}}

	var order models.Order
	if err := db.OrdersCollection.FindOne(r.Context(), filter).Decode(&order); err != nil {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "No order matches that reference"})
		return
	}
	if n := len(order.Tracking); n > 0 {
		order.CurrentStatus = order.Tracking[n-1].Status
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": order})
}

// FindOrdersForDeliveryWindow handles GET /api/orders?date=...&status=...
// It returns orders whose estimated delivery falls on the given calendar day,
// optionally narrowed to one status.
func FindOrdersForDeliveryWindow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dateStr := r.URL.Query().Get("date")
	day := time.Now()
	if dateStr != "" {
		parsed := utils.ParseDate(dateStr)
		if parsed == nil {
			utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		day = *parsed
	}

	status := r.URL.Query().Get("status")
	filter := bson.M{}
	if status != "" {
		filter["currentStatus"] = status
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := db.OrdersCollection.Find(r.Context(), filter, findOpts)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to fetch orders"})
		return
	}
	defer cursor.Close(r.Context())

	var all []models.Order
	if err := cursor.All(r.Context(), &all); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to decode orders"})
		return
	}

	// The estimate depends on logistics and tracking state, so the day
	// filter is applied in memory after resolving each order's estimate.
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	matched := []models.Order{}
	for i := range all {
		eta := EstimatedDelivery(&all[i])
		if !eta.Before(dayStart) && eta.Before(dayEnd) {
			matched = append(matched, all[i])
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"orders":  matched,
		"total":   len(matched),
	})
}
