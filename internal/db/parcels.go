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

type ParcelStore struct {
	collection *mongo.Collection
}

func NewParcelStore(database *mongo.Database) *ParcelStore {
	return &ParcelStore{collection: database.Collection(ParcelsCollection)}
}

func (s *ParcelStore) Insert(ctx context.Context, parcel *models.Parcel) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.InsertOne(ctx, parcel)
	if err != nil {
		return writeError(err, "failed to insert parcel")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		parcel.ID = oid
	}
	return nil
}

func (s *ParcelStore) FindByID(ctx context.Context, id string) (*models.Parcel, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var parcel models.Parcel
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&parcel); err != nil {
		return nil, readError(err, "parcel")
	}
	return &parcel, nil
}

func (s *ParcelStore) List(ctx context.Context, filter services.ParcelFilter) ([]models.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := bson.M{}
	if filter.SenderEmail != "" {
		query["senderEmail"] = filter.SenderEmail
	}
	if filter.RiderEmail != "" {
		query["riderEmail"] = filter.RiderEmail
	}
	switch {
	case filter.DeliveryStatus != "":
		query["deliveryStatus"] = filter.DeliveryStatus
	case filter.ExcludeDelivered:
		query["deliveryStatus"] = bson.M{"$ne": models.StatusParcelDelivered}
	}

	cur, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to fetch parcels")
	}
	defer cur.Close(ctx)

	parcels := []models.Parcel{}
	if err := cur.All(ctx, &parcels); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to decode parcels")
	}
	return parcels, nil
}

func (s *ParcelStore) MarkPaid(ctx context.Context, id, trackingID string, at time.Time) (bool, error) {
	return s.updateIf(ctx, id, bson.M{"paymentStatus": bson.M{"$ne": models.PaymentPaid}}, bson.M{
		"paymentStatus":  models.PaymentPaid,
		"deliveryStatus": models.StatusPendingPickup,
		"trackingId":     trackingID,
		"updatedAt":      at,
	})
}

func (s *ParcelStore) AssignRider(ctx context.Context, id string, a models.RiderAssignment, at time.Time) (bool, error) {
	return s.updateIf(ctx, id, bson.M{
		"paymentStatus":  models.PaymentPaid,
		"deliveryStatus": models.StatusPendingPickup,
	}, bson.M{
		"deliveryStatus": models.StatusDriverAssigned,
		"riderId":        a.RiderID,
		"riderName":      a.RiderName,
		"riderEmail":     a.RiderEmail,
		"updatedAt":      at,
	})
}

func (s *ParcelStore) SetDeliveryStatus(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	return s.updateIf(ctx, id, bson.M{"deliveryStatus": from}, bson.M{
		"deliveryStatus": to,
		"updatedAt":      at,
	})
}

// updateIf applies set to the parcel only while cond still holds.
func (s *ParcelStore) updateIf(ctx context.Context, id string, cond, set bson.M) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cond["_id"] = oid
	res, err := s.collection.UpdateOne(ctx, cond, bson.M{"$set": set})
	if err != nil {
		return false, writeError(err, "failed to update parcel")
	}
	return res.MatchedCount > 0, nil
}

func (s *ParcelStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, err, "failed to delete parcel")
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("parcel not found")
	}
	return nil
}
