package subscriptions

import (
	"context"
	"log"
	"net/http"
	"time"

	"mandi/apperr"
	"mandi/db"
	"mandi/models"
	"mandi/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// sweepExpired applies the lazy end-date expiry to query results and
// persists any flips. Expired subscriptions drop out of the result set.
func sweepExpired(ctx context.Context, subs []models.Subscription) []models.Subscription {
	now := time.Now()
	live := subs[:0]
	for i := range subs {
		if MaybeExpire(&subs[i], now) {
			if err := saveSubscription(ctx, &subs[i]); err != nil {
				log.Printf("[sweepExpired] failed to persist expiry of %s: %v", subs[i].SubscriptionID, err)
			}
			continue
		}
		live = append(live, subs[i])
	}
	return live
}

// DueSubscriptions returns active subscriptions whose cursor falls on or
// before the end of the given day, ascending by next delivery date.
func DueSubscriptions(ctx context.Context, date time.Time) ([]models.Subscription, error) {
	filter := bson.M{
		"status":           models.SubscriptionActive,
		"nextDeliveryDate": bson.M{"$lte": endOfDay(date)},
	}
	return findSorted(ctx, filter)
}

// UpcomingSubscriptions returns active subscriptions with a cursor inside
// [now, now+daysAhead], ascending.
func UpcomingSubscriptions(ctx context.Context, daysAhead int) ([]models.Subscription, error) {
	now := time.Now()
	filter := bson.M{
		"status": models.SubscriptionActive,
		"nextDeliveryDate": bson.M{
			"$gte": now,
			"$lte": now.AddDate(0, 0, daysAhead),
		},
	}
	return findSorted(ctx, filter)
}

func findSorted(ctx context.Context, filter bson.M) ([]models.Subscription, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "nextDeliveryDate", Value: 1}})
	cursor, err := db.SubscriptionsCollection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return sweepExpired(ctx, subs), nil
}

// filterForViewer applies the permission filter: farmers see their own,
// customers see their own, admins see everything.
func filterForViewer(ctx context.Context, subs []models.Subscription, userID string) []models.Subscription {
	if isAdminUser(ctx, userID) {
		return subs
	}
	visible := subs[:0]
	for _, sub := range subs {
		if sub.CustomerID == userID || sub.FarmerID == userID {
			visible = append(visible, sub)
		}
	}
	return visible
}

// GetDue handles GET /api/deliveries/due?date=YYYY-MM-DD.
func GetDue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	date := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		parsed := utils.ParseDate(s)
		if parsed == nil {
			utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		date = *parsed
	}

	subs, err := DueSubscriptions(r.Context(), date)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to fetch subscriptions"})
		return
	}
	subs = filterForViewer(r.Context(), subs, requestingUserID)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscriptions": subs, "total": len(subs)})
}

// GetUpcoming handles GET /api/deliveries/upcoming?days=N.
func GetUpcoming(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	days := utils.ParseInt(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 7
	}

	subs, err := UpcomingSubscriptions(r.Context(), days)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to fetch subscriptions"})
		return
	}
	subs = filterForViewer(r.Context(), subs, requestingUserID)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "subscriptions": subs, "total": len(subs)})
}

// Analytics summarizes one subscription's delivery history over a window.
type Analytics struct {
	TimeframeDays     int     `json:"timeframeDays"`
	Deliveries        int     `json:"deliveries"`
	Spend             float64 `json:"spend"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	SatisfactionScore float64 `json:"satisfactionScore"`
	MissedDeliveries  int     `json:"missedDeliveries"`
	PausedDays        int     `json:"pausedDays"`
}

// ComputeAnalytics scans the delivery history inside the window. Lifetime
// counters (missed deliveries, paused days) come from metrics as-is.
func ComputeAnalytics(sub *models.Subscription, days int) Analytics {
	cutoff := time.Now().AddDate(0, 0, -days)

	a := Analytics{
		TimeframeDays:    days,
		MissedDeliveries: sub.Metrics.MissedDeliveries,
		PausedDays:       sub.Metrics.PausedDays,
	}

	var ratingSum, ratingCount float64
	for _, rec := range sub.DeliveryHistory {
		if rec.DeliveredDate.Before(cutoff) {
			continue
		}
		a.Deliveries++
		a.Spend += rec.Amount
		if rec.Satisfaction != nil {
			ratingSum += float64(rec.Satisfaction.Rating)
			ratingCount++
		}
	}
	if a.Deliveries > 0 {
		a.AverageOrderValue = a.Spend / float64(a.Deliveries)
	}
	if ratingCount > 0 {
		a.SatisfactionScore = ratingSum / ratingCount
	}
	return a
}

// GetAnalytics handles GET /api/subscriptions/:id/analytics?days=N.
func GetAnalytics(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	sub, err := LoadSubscription(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if !isPartyOrAdmin(r.Context(), sub, requestingUserID) {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not a party to this subscription"})
		return
	}

	days := utils.ParseInt(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "analytics": ComputeAnalytics(sub, days)})
}
