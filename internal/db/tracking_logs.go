package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

type TrackingLogStore struct {
	collection *mongo.Collection
}

func NewTrackingLogStore(database *mongo.Database) *TrackingLogStore {
	return &TrackingLogStore{collection: database.Collection(TrackingLogsCollection)}
}

// Insert appends entry. The (trackingId, status) index is unique, so writing
// a status that is already logged succeeds without a second document.
func (s *TrackingLogStore) Insert(ctx context.Context, entry *models.TrackingLog) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return apperror.Wrap(apperror.KindInternal, err, "failed to insert tracking log")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
	}
	return nil
}

func (s *TrackingLogStore) ListByTrackingID(ctx context.Context, trackingID string) ([]models.TrackingLog, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cur, err := s.collection.Find(ctx,
		bson.M{"trackingId": trackingID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to fetch tracking logs")
	}
	defer cur.Close(ctx)

	logs := []models.TrackingLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to decode tracking logs")
	}
	return logs, nil
}
