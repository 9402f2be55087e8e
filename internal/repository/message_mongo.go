package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
)

const messageSeqCounter = "messages"

type MongoMessageRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	timeout  time.Duration
}

func NewMongoMessageRepository(db *mongo.Database, collection, counters string, timeout time.Duration) (*MongoMessageRepository, error) {
	r := &MongoMessageRepository{
		coll:     db.Collection(collection),
		counters: db.Collection(counters),
		timeout:  timeout,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "attachment_ref", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "thumbnail_ref", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("create message indexes: %w", err)
	}
	return r, nil
}

func (r *MongoMessageRepository) nextSeq(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messageSeqCounter},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next message seq: %w", err)
	}
	return doc.Seq, nil
}

func (r *MongoMessageRepository) Insert(ctx context.Context, m *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	m.Seq = seq
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// conversationFilter matches both directions of the pair.
func conversationFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
}

func conversationSort() bson.D {
	return bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}
}

func (r *MongoMessageRepository) FindConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, conversationFilter(a, b), options.Find().SetSort(conversationSort()))
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return out, nil
}

func (r *MongoMessageRepository) FindByAttachment(ctx context.Context, ref string) (models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var m models.Message
	err := r.coll.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"attachment_ref": ref},
		bson.M{"thumbnail_ref": ref},
	}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, apperrors.ErrNotFound
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("find by attachment: %w", err)
	}
	return m, nil
}
