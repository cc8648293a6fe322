package repositories

import (
	"context"
	"time"

	"resqall/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SOSRepository persists SOS records to MongoDB. It implements the
// interfaces.SOSStore used by the dispatch persist channel and also exposes
// the history reads the app surface needs.
type SOSRepository struct {
	collection *mongo.Collection
}

func NewSOSRepository(database *mongo.Database) *SOSRepository {
	return &SOSRepository{
		collection: database.Collection("sos_history"),
	}
}

func (sr *SOSRepository) Available() bool {
	return sr.collection != nil
}

// SaveSOS inserts one record, stamping CreatedAt at insert time.
func (sr *SOSRepository) SaveSOS(ctx context.Context, record models.SOSRecord) error {
	record.CreatedAt = time.Now()

	_, err := sr.collection.InsertOne(ctx, record)
	if err != nil {
		logrus.Errorf("Failed to save SOS record for user %s: %v", record.UserID, err)
		return err
	}

	logrus.Infof("SOS record saved for user %s", record.UserID)
	return nil
}

// GetHistory returns the user's SOS records, newest first.
func (sr *SOSRepository) GetHistory(ctx context.Context, userID string, limit int64) ([]models.SOSRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetLimit(limit)

	cursor, err := sr.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.SOSRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}
