package models

import "time"

type ContactInfo struct {
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Website string `bson:"website,omitempty" json:"website,omitempty"`
}

type Farm struct {
	FarmID             string      `bson:"farmId" json:"farmId"`
	Name               string      `bson:"name" json:"name"`
	Location           string      `bson:"location" json:"location"`
	Description        string      `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID            string      `bson:"ownerId" json:"ownerId"`
	ContactInfo        ContactInfo `bson:"contactInfo,omitempty" json:"contactInfo,omitempty"`
	AvailabilityTiming string      `bson:"availabilityTiming,omitempty" json:"availabilityTiming,omitempty"`
	Tags               []string    `bson:"tags,omitempty" json:"tags,omitempty"`
	Photo              string      `bson:"photo,omitempty" json:"photo,omitempty"`
	Crops              []Crop      `bson:"crops,omitempty" json:"crops,omitempty"` // loaded via lookup or separate query
	CreatedBy          string      `bson:"createdBy" json:"createdBy"`
	CreatedAt          time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time   `bson:"updatedAt" json:"updatedAt"`
}

type Crop struct {
	CropID      string     `bson:"cropId" json:"cropId"`
	FarmID      string     `bson:"farmId" json:"farmId"`
	Name        string     `bson:"name" json:"name"`
	Category    string     `bson:"category,omitempty" json:"category,omitempty"`
	Price       float64    `bson:"price" json:"price"`
	Quantity    int        `bson:"quantity" json:"quantity"`
	Unit        string     `bson:"unit,omitempty" json:"unit,omitempty"`
	ImageURL    string     `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
	OutOfStock  bool       `bson:"outOfStock" json:"outOfStock"`
	HarvestDate *time.Time `bson:"harvestDate,omitempty" json:"harvestDate,omitempty"`
	ExpiryDate  *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}
