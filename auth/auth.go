package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"mandi/db"
	"mandi/globals"
	"mandi/middleware"
	"mandi/models"
	"mandi/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenTTL = 24 * time.Hour

func generateAccessToken(user models.User) (string, error) {
	claims := middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(globals.JwtSecret)
}

// Register handles POST /api/auth/register.
func Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid input"})
		return
	}
	if input.Username == "" || input.Password == "" || input.Email == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Username, email, and password are required"})
		return
	}

	role := input.Role
	if role != "farmer" && role != "customer" {
		role = "customer"
	}

	count, err := db.UserCollection.CountDocuments(r.Context(), bson.M{"username": input.Username})
	if err != nil || count > 0 {
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"success": false, "message": "Username already taken"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to hash password"})
		return
	}

	now := time.Now()
	user := models.User{
		UserID:       utils.GenerateID(12),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         []string{role},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := db.UserCollection.InsertOne(r.Context(), user); err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to create user"})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "userid": user.UserID})
}

// Login handles POST /api/auth/login.
func Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid input"})
		return
	}
	if input.Username == "" || input.Password == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Username and password are required"})
		return
	}

	var storedUser models.User
	if err := db.UserCollection.FindOne(r.Context(), bson.M{"username": input.Username}).Decode(&storedUser); err != nil {
		utils.RespondWithJSON(w, http.StatusUnauthorized, utils.M{"success": false, "message": "Invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedUser.PasswordHash), []byte(input.Password)); err != nil {
		utils.RespondWithJSON(w, http.StatusUnauthorized, utils.M{"success": false, "message": "Invalid username or password"})
		return
	}

	tokenString, err := generateAccessToken(storedUser)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Failed to generate token"})
		return
	}

	db.UserCollection.UpdateOne(r.Context(),
		bson.M{"userid": storedUser.UserID},
		bson.M{"$set": bson.M{"last_login": time.Now()}})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"token":   tokenString,
		"userid":  storedUser.UserID,
	})
}
