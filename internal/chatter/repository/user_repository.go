package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"chatter_service/internal/chatter/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository definition user store gateway
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// SearchByPrefix 大小寫不敏感的 username 前綴搜尋，排除 excluding 自己，不回傳憑證欄位
	SearchByPrefix(ctx context.Context, prefix, excluding string) ([]domain.User, error)
}

type userRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository create a UserRepository
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		coll: db.Collection("users"),
	}
}

// mapStoreErr 區分 not-found 與 store-unavailable
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	res, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		return mapStoreErr(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"email": email}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, mapStoreErr(err)
	}
	return true, nil
}

func (r *userRepository) SearchByPrefix(ctx context.Context, prefix, excluding string) ([]domain.User, error) {
	filter := bson.M{
		"username": bson.M{
			"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"},
			"$ne":    excluding,
		},
	}
	opts := options.Find().SetProjection(bson.M{"password": 0})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	var users []domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, mapStoreErr(err)
	}
	return users, nil
}
