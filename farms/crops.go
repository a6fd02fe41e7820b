package farms

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mandi/db"
	"mandi/models"
	"mandi/mq"
	"mandi/rdx"
	"mandi/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

func parseCropForm(r *http.Request) models.Crop {
	now := time.Now()
	return models.Crop{
		CropID:      utils.GenerateID(14),
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Price:       utils.ParseFloat(r.FormValue("price")),
		Quantity:    utils.ParseInt(r.FormValue("quantity")),
		Unit:        r.FormValue("unit"),
		Notes:       r.FormValue("notes"),
		HarvestDate: utils.ParseDate(r.FormValue("harvestDate")),
		ExpiryDate:  utils.ParseDate(r.FormValue("expiryDate")),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func AddCrop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	farmID := ps.ByName("id")
	if farmID == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid farm ID"})
		return
	}

	requestingUserID, ok := getUserIDFromContext(r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var farm models.Farm
	if err := db.FarmsCollection.FindOne(r.Context(), bson.M{"farmId": farmID}).Decode(&farm); err != nil {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Farm not found"})
		return
	}
	if farm.OwnerID != requestingUserID {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not the farm owner"})
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid form"})
		return
	}

	crop := parseCropForm(r)
	crop.FarmID = farmID
	if crop.Name == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Name is required"})
		return
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if path, err := utils.SaveUploadedImage(file, header, "crops"); err == nil {
			crop.ImageURL = path
		}
	}

	if _, err := db.CropsCollection.InsertOne(r.Context(), crop); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Insert failed"})
		return
	}

	go mq.Emit(r.Context(), "crop-created", models.Index{EntityType: "crop", EntityId: crop.CropID, Method: "POST"})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "cropId": crop.CropID})
}

func EditCrop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cropID := ps.ByName("cropid")

	if _, ok := getUserIDFromContext(r); !ok {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid form"})
		return
	}

	update := bson.M{"updatedAt": time.Now()}
	if v := r.FormValue("name"); v != "" {
		update["name"] = v
	}
	if v := r.FormValue("unit"); v != "" {
		update["unit"] = v
	}
	if v := r.FormValue("price"); v != "" {
		update["price"] = utils.ParseFloat(v)
	}
	if v := r.FormValue("quantity"); v != "" {
		qty := utils.ParseInt(v)
		update["quantity"] = qty
		update["outOfStock"] = qty == 0
	}
	if v := r.FormValue("notes"); v != "" {
		update["notes"] = v
	}

	result, err := db.CropsCollection.UpdateOne(r.Context(), bson.M{"cropId": cropID}, bson.M{"$set": update})
	if err != nil || result.MatchedCount == 0 {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Crop not found"})
		return
	}

	// Invalidate the cached price so subscription deliveries see the change.
	rdx.Conn.Del(r.Context(), "crop:price:"+cropID)

	go mq.Emit(r.Context(), "crop-updated", models.Index{EntityType: "crop", EntityId: cropID, Method: "PUT"})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func GetFarmCrops(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	farmID := ps.ByName("id")

	cursor, err := db.CropsCollection.Find(r.Context(), bson.M{"farmId": farmID})
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to fetch crops"})
		return
	}
	defer cursor.Close(r.Context())

	var crops []models.Crop
	if err := cursor.All(r.Context(), &crops); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to decode crops"})
		return
	}
	if len(crops) == 0 {
		crops = []models.Crop{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "crops": crops})
}

// LookupCrop resolves the live catalog state of a crop, consulting the
// short-lived Redis cache first. Subscription deliveries price against
// whatever this returns.
func LookupCrop(ctx context.Context, cropID string) (*models.Crop, error) {
	cacheKey := "crop:price:" + cropID
	if cached, ok := rdx.CacheGet(ctx, cacheKey); ok {
		var crop models.Crop
		if err := json.Unmarshal([]byte(cached), &crop); err == nil {
			return &crop, nil
		}
	}

	var crop models.Crop
	if err := db.CropsCollection.FindOne(ctx, bson.M{"cropId": cropID}).Decode(&crop); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(crop); err == nil {
		rdx.CacheSet(ctx, cacheKey, string(data), 5*time.Minute)
	}
	return &crop, nil
}

// GetCropPrice handles GET /api/crops/:cropid/price.
func GetCropPrice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	crop, err := LookupCrop(r.Context(), ps.ByName("cropid"))
	if err != nil {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Crop not found"})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":   true,
		"cropId":    crop.CropID,
		"price":     crop.Price,
		"unit":      crop.Unit,
		"available": !crop.OutOfStock && crop.Quantity > 0,
	})
}

// BuyCrop handles POST /api/crops/:cropid/buy. Decrements stock
// and flips outOfStock at zero.
func BuyCrop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cropID := ps.ByName("cropid")

	if _, ok := getUserIDFromContext(r); !ok {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Quantity < 1 {
		body.Quantity = 1
	}

	filter := bson.M{
		"cropId":     cropID,
		"quantity":   bson.M{"$gte": body.Quantity},
		"outOfStock": false,
	}
	update := bson.M{
		"$inc": bson.M{"quantity": -body.Quantity},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	result, err := db.CropsCollection.UpdateOne(r.Context(), filter, update)
	if err != nil || result.ModifiedCount == 0 {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Crop not available or already out of stock"})
		return
	}

	// Flip the flag once stock hits zero
	db.CropsCollection.UpdateOne(r.Context(),
		bson.M{"cropId": cropID, "quantity": 0},
		bson.M{"$set": bson.M{"outOfStock": true}})

	rdx.Conn.Del(r.Context(), "crop:price:"+cropID)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
