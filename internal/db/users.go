package db

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type UserStore struct {
	collection *mongo.Collection
}

func NewUserStore(database *mongo.Database) *UserStore {
	return &UserStore{collection: database.Collection(UsersCollection)}
}

// Upsert inserts user unless the email is already registered, in which case
// only lastLoginAt changes. It reports whether a document was inserted.
func (s *UserStore) Upsert(ctx context.Context, user *models.User) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{
		"$setOnInsert": bson.M{
			"displayName": user.DisplayName,
			"photoURL":    user.PhotoURL,
			"role":        user.Role,
			"createdAt":   user.CreatedAt,
		},
		"$set": bson.M{"lastLoginAt": user.LastLoginAt},
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"email": user.Email}, update, options.Update().SetUpsert(true))
	if err != nil {
		// A concurrent sign-in inserted the same email first.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, apperror.Wrap(apperror.KindInternal, err, "failed to upsert user")
	}
	if res.UpsertedCount == 0 {
		return false, nil
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return true, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	if err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, readError(err, "user")
	}
	return &user, nil
}

func (s *UserStore) List(ctx context.Context, filter services.UserFilter) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"displayName": pattern},
			bson.M{"email": pattern},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cur, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to fetch users")
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to decode users")
	}
	return users, nil
}

func (s *UserStore) SetRole(ctx context.Context, id string, role models.Role) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return s.setRole(ctx, bson.M{"_id": oid}, role)
}

func (s *UserStore) SetRoleByEmail(ctx context.Context, email string, role models.Role) error {
	return s.setRole(ctx, bson.M{"email": email}, role)
}

func (s *UserStore) setRole(ctx context.Context, filter bson.M, role models.Role) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, err, "failed to update user role")
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}
