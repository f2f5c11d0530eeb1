package repository

import (
	"context"
	"fmt"
	"time"

	"chatter_service/internal/chatter/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message store gateway
// delivered_at/read_at 只會被設置一次，重放的 ack 保留第一次的時間戳
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) (string, error)
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// FindBetween 回傳兩人之間雙向的訊息，created_at 升序
	FindBetween(ctx context.Context, userA, userB string) ([]domain.Message, error)
	SetDeliveredAt(ctx context.Context, id string, at time.Time) error
	SetReadAt(ctx context.Context, id string, at time.Time) error
	DistinctReceiversFrom(ctx context.Context, sender string) ([]string, error)
	DistinctSendersTo(ctx context.Context, receiver string) ([]string, error)
	// CountUnread sender=partner, receiver=user, read_at 為 null 的數量
	CountUnread(ctx context.Context, user, partner string) (int64, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) (string, error) {
	res, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return "", mapStoreErr(err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%w: unexpected inserted id type", domain.ErrStoreUnavailable)
	}
	msg.ID = oid
	return oid.Hex(), nil
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// 非法的 id 等同找不到
		return nil, domain.ErrNotFound
	}
	var msg domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		return nil, mapStoreErr(err)
	}
	return &msg, nil
}

func (r *messageRepository) FindBetween(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"sender": userA, "receiver": userB},
			{"sender": userB, "receiver": userA},
		},
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, mapStoreErr(err)
	}
	return messages, nil
}

// setTimestampOnce 只在欄位仍為 null 時設置，確保最多設置一次
func (r *messageRepository) setTimestampOnce(ctx context.Context, id, field string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, field: nil},
		bson.M{"$set": bson.M{field: at}},
	)
	if err != nil {
		return mapStoreErr(err)
	}
	if res.MatchedCount == 0 {
		// 訊息不存在，或欄位已被設置過；兩者對呼叫端都不是錯誤
		return nil
	}
	return nil
}

func (r *messageRepository) SetDeliveredAt(ctx context.Context, id string, at time.Time) error {
	return r.setTimestampOnce(ctx, id, "delivered_at", at)
}

func (r *messageRepository) SetReadAt(ctx context.Context, id string, at time.Time) error {
	return r.setTimestampOnce(ctx, id, "read_at", at)
}

func (r *messageRepository) DistinctReceiversFrom(ctx context.Context, sender string) ([]string, error) {
	return r.distinct(ctx, "receiver", bson.M{"sender": sender})
}

func (r *messageRepository) DistinctSendersTo(ctx context.Context, receiver string) ([]string, error) {
	return r.distinct(ctx, "sender", bson.M{"receiver": receiver})
}

func (r *messageRepository) distinct(ctx context.Context, field string, filter bson.M) ([]string, error) {
	values, err := r.coll.Distinct(ctx, field, filter)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	usernames := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			usernames = append(usernames, s)
		}
	}
	return usernames, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, user, partner string) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"sender":   partner,
		"receiver": user,
		"read_at":  nil,
	})
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return count, nil
}
