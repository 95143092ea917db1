package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type PaymentStore struct {
	collection *mongo.Collection
}

func NewPaymentStore(database *mongo.Database) *PaymentStore {
	return &PaymentStore{collection: database.Collection(PaymentsCollection)}
}

// Insert records payment. A second payment for the same transaction id
// fails with apperror.ErrDuplicateKey.
func (s *PaymentStore) Insert(ctx context.Context, payment *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.InsertOne(ctx, payment)
	if err != nil {
		return writeError(err, "failed to insert payment")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		payment.ID = oid
	}
	return nil
}

func (s *PaymentStore) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var payment models.Payment
	if err := s.collection.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&payment); err != nil {
		return nil, readError(err, "payment")
	}
	return &payment, nil
}

func (s *PaymentStore) List(ctx context.Context, filter services.PaymentFilter) ([]models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := bson.M{}
	if filter.CustomerEmail != "" {
		query["customerEmail"] = filter.CustomerEmail
	}
	paidAt := bson.M{}
	if !filter.From.IsZero() {
		paidAt["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		paidAt["$lte"] = filter.To
	}
	if len(paidAt) > 0 {
		query["paidAt"] = paidAt
	}

	cur, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "paidAt", Value: -1}}))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to fetch payments")
	}
	defer cur.Close(ctx)

	payments := []models.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to decode payments")
	}
	return payments, nil
}
