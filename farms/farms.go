package farms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"mandi/db"
	"mandi/globals"
	"mandi/models"
	"mandi/mq"
	"mandi/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func getUserIDFromContext(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	return userID, ok
}

func CreateFarm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	err := r.ParseMultipartForm(10 << 20)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Failed to parse form"})
		return
	}

	requestingUserID, ok := getUserIDFromContext(r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	farm := models.Farm{
		FarmID:             utils.GenerateID(14),
		Name:               r.FormValue("name"),
		Location:           r.FormValue("location"),
		Description:        r.FormValue("description"),
		OwnerID:            requestingUserID,
		AvailabilityTiming: r.FormValue("availabilityTiming"),
		Tags:               utils.SplitTags(r.FormValue("tags")),
		ContactInfo: models.ContactInfo{
			Phone: r.FormValue("phone"),
			Email: r.FormValue("email"),
		},
		CreatedBy: requestingUserID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if farm.Name == "" || farm.Location == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Missing required fields"})
		return
	}

	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		if path, err := utils.SaveUploadedImage(file, header, "farms"); err == nil {
			farm.Photo = path
		}
	}

	if _, err := db.FarmsCollection.InsertOne(r.Context(), farm); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to insert farm"})
		return
	}

	go mq.Emit(r.Context(), "farm-created", models.Index{EntityType: "farm", EntityId: farm.FarmID, Method: "POST"})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "farmId": farm.FarmID})
}

func GetFarm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	farmID := ps.ByName("id")

	var farm models.Farm
	if err := db.FarmsCollection.FindOne(r.Context(), bson.M{"farmId": farmID}).Decode(&farm); err != nil {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Farm not found"})
		return
	}

	// Crops live in their own collection
	cursor, err := db.CropsCollection.Find(r.Context(), bson.M{"farmId": farmID})
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to load crops"})
		return
	}
	defer cursor.Close(r.Context())

	var crops []models.Crop
	if err := cursor.All(r.Context(), &crops); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to decode crops"})
		return
	}
	farm.Crops = crops

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "farm": farm})
}

func EditFarm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	farmID := ps.ByName("id")

	requestingUserID, ok := getUserIDFromContext(r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var existing models.Farm
	if err := db.FarmsCollection.FindOne(r.Context(), bson.M{"farmId": farmID}).Decode(&existing); err != nil {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Farm not found"})
		return
	}
	if existing.OwnerID != requestingUserID {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not the farm owner"})
		return
	}

	updateFields := bson.M{}
	contentType := r.Header.Get("Content-Type")

	var input models.Farm
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Malformed multipart data"})
			return
		}
		input.Name = r.FormValue("name")
		input.Location = r.FormValue("location")
		input.Description = r.FormValue("description")
		input.AvailabilityTiming = r.FormValue("availabilityTiming")

		if file, header, err := r.FormFile("photo"); err == nil {
			defer file.Close()
			if path, err := utils.SaveUploadedImage(file, header, "farms"); err == nil {
				updateFields["photo"] = path
			}
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid JSON body"})
			return
		}
	}

	if input.Name != "" {
		updateFields["name"] = input.Name
	}
	if input.Location != "" {
		updateFields["location"] = input.Location
	}
	if input.Description != "" {
		updateFields["description"] = input.Description
	}
	if input.AvailabilityTiming != "" {
		updateFields["availabilityTiming"] = input.AvailabilityTiming
	}

	if len(updateFields) == 0 {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "No fields to update"})
		return
	}
	updateFields["updatedAt"] = time.Now()

	_, err := db.FarmsCollection.UpdateOne(r.Context(), bson.M{"farmId": farmID}, bson.M{"$set": updateFields})
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Database error"})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Farm updated"})
}

func DeleteFarm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	farmID := ps.ByName("id")

	requestingUserID, ok := getUserIDFromContext(r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	var farm models.Farm
	if err := db.FarmsCollection.FindOne(r.Context(), bson.M{"farmId": farmID}).Decode(&farm); err != nil {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Not found"})
		return
	}
	if farm.OwnerID != requestingUserID {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not the farm owner"})
		return
	}

	// Orders and subscriptions referencing this farm are left untouched;
	// deleting a farm never cascades into either aggregate.
	if _, err := db.FarmsCollection.DeleteOne(r.Context(), bson.M{"farmId": farmID}); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false})
		return
	}
	db.CropsCollection.DeleteMany(r.Context(), bson.M{"farmId": farmID})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func GetPaginatedFarms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	page := utils.ParseInt(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	limit := utils.ParseInt(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	skip := (page - 1) * limit

	total, err := db.FarmsCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to count farms"})
		return
	}

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "updatedAt", Value: -1}}}},
		{{Key: "$skip", Value: int64(skip)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{
			Key: "$lookup",
			Value: bson.D{
				{Key: "from", Value: "crops"},
				{Key: "localField", Value: "farmId"},
				{Key: "foreignField", Value: "farmId"},
				{Key: "as", Value: "crops"},
			},
		}},
	}

	cursor, err := db.FarmsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to aggregate farms with crops"})
		return
	}
	defer cursor.Close(ctx)

	var farms []models.Farm
	if err := cursor.All(ctx, &farms); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to decode result"})
		return
	}
	if len(farms) == 0 {
		farms = []models.Farm{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"farms":   farms,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
