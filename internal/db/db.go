// Package db holds the MongoDB connection, index setup and the collection
// backed repositories used by the services.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

const (
	UsersCollection        = "users"
	ParcelsCollection      = "parcels"
	RidersCollection       = "riders"
	PaymentsCollection     = "payments"
	TrackingLogsCollection = "trackingLogs"

	opTimeout   = 5 * time.Second
	listTimeout = 10 * time.Second
)

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Success("connected to MongoDB")
	return client, nil
}

func Disconnect(ctx context.Context, client *mongo.Client) error {
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	logger.Info("disconnected from MongoDB")
	return nil
}

// EnsureIndexes creates the indexes every collection relies on, including the
// unique ones that make payment confirmation and tracking logs idempotent.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		ParcelsCollection: {
			{Keys: bson.D{{Key: "senderEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "riderEmail", Value: 1}, {Key: "deliveryStatus", Value: 1}}},
			{Keys: bson.D{{Key: "trackingId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		RidersCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "district", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "paidAt", Value: -1}}},
		},
		TrackingLogsCollection: {
			{Keys: bson.D{{Key: "trackingId", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "trackingId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			logger.Error("failed to create indexes", err, "collection", name)
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	logger.Info("indexes ensured", "database", database.Name())
	return nil
}

// NewStore wires every repository against database.
func NewStore(client *mongo.Client, database *mongo.Database, transactions bool) services.Store {
	return services.Store{
		Users:        NewUserStore(database),
		Parcels:      NewParcelStore(database),
		Riders:       NewRiderStore(database),
		Payments:     NewPaymentStore(database),
		TrackingLogs: NewTrackingLogStore(database),
		Tx:           NewTransactor(client, transactions),
	}
}

// Transactor runs multi-document writes in a MongoDB transaction. Disabled
// transactors, used against standalone servers, run the function directly.
type Transactor struct {
	client  *mongo.Client
	enabled bool
}

func NewTransactor(client *mongo.Client, enabled bool) *Transactor {
	return &Transactor{client: client, enabled: enabled}
}

func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, err, "failed to start session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation(fmt.Sprintf("invalid id %q", id))
	}
	return oid, nil
}

// readError maps a single document lookup failure.
func readError(err error, what string) error {
	if err == mongo.ErrNoDocuments {
		return apperror.NotFound(what + " not found")
	}
	return apperror.Wrap(apperror.KindInternal, err, "failed to fetch "+what)
}

// writeError maps a write failure, keeping duplicate keys recognisable.
func writeError(err error, message string) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", message, apperror.ErrDuplicateKey)
	}
	return apperror.Wrap(apperror.KindInternal, err, message)
}
