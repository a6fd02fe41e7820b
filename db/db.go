package db

import (
	"context"
	"log"
	"time"

	"mandi/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	UserCollection          *mongo.Collection
	FarmsCollection         *mongo.Collection
	CropsCollection         *mongo.Collection
	OrdersCollection        *mongo.Collection
	SubscriptionsCollection *mongo.Collection
	NotificationsCollection *mongo.Collection
	Client                  *mongo.Client
)

// Init connects to MongoDB and binds the package-level collection handles.
// Must be called once from main before the router starts serving.
func Init(cfg config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.MongoURI)
	var err error
	Client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := Client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("MongoDB ping failed: %v", err)
	}

	database := Client.Database(cfg.MongoDB)
	UserCollection = database.Collection("users")
	FarmsCollection = database.Collection("farms")
	CropsCollection = database.Collection("crops")
	OrdersCollection = database.Collection("orders")
	SubscriptionsCollection = database.Collection("subscriptions")
	NotificationsCollection = database.Collection("notifications")
}
