package repository

import (
	"context"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDeliveryRepository implements DeliveryRepository
type MongoDeliveryRepository struct {
	collection *mongo.Collection
}

// NewMongoDeliveryRepository creates a new delivery log repository
func NewMongoDeliveryRepository(db *mongo.Database) repository.DeliveryRepository {
	collection := db.Collection("deliveries")

	ctx := context.Background()

	// Lookups by notification, newest attempt first
	notificationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "notificationId", Value: 1},
			{Key: "attemptedAt", Value: -1},
		},
	}

	sinkStatusIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "sink", Value: 1},
			{Key: "status", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		notificationIndex,
		sinkStatusIndex,
	})

	return &MongoDeliveryRepository{
		collection: collection,
	}
}

// Save appends a delivery attempt
func (r *MongoDeliveryRepository) Save(ctx context.Context, delivery *entity.Delivery) error {
	if delivery.ID == "" {
		delivery.ID = primitive.NewObjectID().Hex()
	}

	_, err := r.collection.InsertOne(ctx, delivery)
	return entity.NewStoreError("save delivery", err)
}

// FindByNotificationID lists the attempts made for one notification
func (r *MongoDeliveryRepository) FindByNotificationID(ctx context.Context, notificationID string) ([]*entity.Delivery, error) {
	opts := options.Find().SetSort(bson.D{{Key: "attemptedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"notificationId": notificationID}, opts)
	if err != nil {
		return nil, entity.NewStoreError("find deliveries", err)
	}
	defer cursor.Close(ctx)

	deliveries := make([]*entity.Delivery, 0)
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, entity.NewStoreError("decode deliveries", err)
	}
	return deliveries, nil
}
