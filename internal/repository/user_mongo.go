package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
)

type MongoUserRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewMongoUserRepository(db *mongo.Database, collection string, timeout time.Duration) (*MongoUserRepository, error) {
	r := &MongoUserRepository{coll: db.Collection(collection), timeout: timeout}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "mobile_no", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}
	return r, nil
}

func mapUserErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return apperrors.New(apperrors.ErrConflict, "email or mobile number already exists")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	u.ID = primitive.NewObjectID().Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, u)
	return mapUserErr("insert user", err)
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	return u, mapUserErr("find user", err)
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, mapUserErr("find user by email", err)
}

func (r *MongoUserRepository) ExistsByEmailOrMobile(ctx context.Context, email, mobileNo string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	or := bson.A{bson.M{"email": email}}
	if mobileNo != "" {
		or = append(or, bson.M{"mobile_no": mobileNo})
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"$or": or}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]models.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (r *MongoUserRepository) update(ctx context.Context, id string, set bson.M) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC()
	var u models.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	return u, mapUserErr("update user", err)
}

func (r *MongoUserRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (models.User, error) {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.MobileNo != nil {
		set["mobile_no"] = *upd.MobileNo
	}
	return r.update(ctx, id, set)
}

func (r *MongoUserRepository) SetBlocked(ctx context.Context, id string, blocked bool) (models.User, error) {
	return r.update(ctx, id, bson.M{"is_blocked": blocked})
}

func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
