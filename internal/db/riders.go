package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type RiderStore struct {
	collection *mongo.Collection
}

func NewRiderStore(database *mongo.Database) *RiderStore {
	return &RiderStore{collection: database.Collection(RidersCollection)}
}

func (s *RiderStore) Insert(ctx context.Context, rider *models.Rider) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.InsertOne(ctx, rider)
	if err != nil {
		return writeError(err, "failed to insert rider")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rider.ID = oid
	}
	return nil
}

func (s *RiderStore) FindByID(ctx context.Context, id string) (*models.Rider, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var rider models.Rider
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&rider); err != nil {
		return nil, readError(err, "rider")
	}
	return &rider, nil
}

func (s *RiderStore) List(ctx context.Context, filter services.RiderFilter) ([]models.Rider, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.District != "" {
		query["district"] = filter.District
	}
	if filter.WorkStatus != "" {
		query["workStatus"] = filter.WorkStatus
	}

	cur, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to fetch riders")
	}
	defer cur.Close(ctx)

	riders := []models.Rider{}
	if err := cur.All(ctx, &riders); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to decode riders")
	}
	return riders, nil
}

// Review sets the application status. Approval keeps a delivering rider in
// delivery and makes anyone else available. Other decisions clear the work
// status and report false when the rider is currently delivering.
func (s *RiderStore) Review(ctx context.Context, id string, status models.RiderStatus, at time.Time) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"_id": oid}
	var update interface{}
	if status == models.RiderApproved {
		update = mongo.Pipeline{{{Key: "$set", Value: bson.M{
			"status":     status,
			"reviewedAt": at,
			"workStatus": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$workStatus", models.WorkInDelivery}},
				models.WorkInDelivery,
				models.WorkAvailable,
			}},
		}}}}
	} else {
		filter["workStatus"] = bson.M{"$ne": models.WorkInDelivery}
		update = bson.M{
			"$set":   bson.M{"status": status, "reviewedAt": at},
			"$unset": bson.M{"workStatus": ""},
		}
	}

	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, apperror.Wrap(apperror.KindInternal, err, "failed to update rider")
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, apperror.Wrap(apperror.KindInternal, err, "failed to look up rider")
	}
	if n == 0 {
		return false, apperror.NotFound("rider not found")
	}
	return false, nil
}

// SetWorkStatus moves the rider from one work status to another and reports
// false when the rider was not in the from state.
func (s *RiderStore) SetWorkStatus(ctx context.Context, id string, from, to models.WorkStatus) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "workStatus": from},
		bson.M{"$set": bson.M{"workStatus": to}},
	)
	if err != nil {
		return false, apperror.Wrap(apperror.KindInternal, err, "failed to update rider work status")
	}
	return res.MatchedCount > 0, nil
}

func (s *RiderStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, err, "failed to delete rider")
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("rider not found")
	}
	return nil
}
