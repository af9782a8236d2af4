package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viewtube/account-system/internal/core/domain"
)

const (
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
	videosCollection        = "videos"
)

// UserRepository implements ports.UserRepository on the users collection.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	Email        string               `bson:"email"`
	FullName     string               `bson:"full_name"`
	Avatar       string               `bson:"avatar"`
	CoverImage   string               `bson:"cover_image,omitempty"`
	PasswordHash string               `bson:"password_hash"`
	RefreshToken string               `bson:"refresh_token,omitempty"`
	WatchHistory []primitive.ObjectID `bson:"watch_history,omitempty"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func (mu *mongoUser) toDomain() *domain.User {
	history := make([]string, 0, len(mu.WatchHistory))
	for _, id := range mu.WatchHistory {
		history = append(history, id.Hex())
	}
	return &domain.User{
		ID:           mu.ID.Hex(),
		Username:     mu.Username,
		Email:        mu.Email,
		FullName:     mu.FullName,
		Avatar:       mu.Avatar,
		CoverImage:   mu.CoverImage,
		PasswordHash: mu.PasswordHash,
		RefreshToken: mu.RefreshToken,
		WatchHistory: history,
		CreatedAt:    mu.CreatedAt,
		UpdatedAt:    mu.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	doc := mongoUser{
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		Avatar:       user.Avatar,
		CoverImage:   user.CoverImage,
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	return r.FindByID(ctx, id.Hex())
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, domain.ErrUserNotFound
	}

	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"$or": or}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, fullName, email string) (*domain.User, error) {
	return r.patch(ctx, id, bson.M{"full_name": fullName, "email": email})
}

func (r *UserRepository) SetAvatar(ctx context.Context, id, url string) (*domain.User, error) {
	return r.patch(ctx, id, bson.M{"avatar": url})
}

func (r *UserRepository) SetCoverImage(ctx context.Context, id, url string) (*domain.User, error) {
	return r.patch(ctx, id, bson.M{"cover_image": url})
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.patch(ctx, id, bson.M{"password_hash": hash})
	return err
}

// SetRefreshToken stores the given refresh token, or unsets it when token is
// empty. Only the token field (and updated_at) is touched, so the password
// hash is never rewritten on session changes.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if token == "" {
		update["$unset"] = bson.M{"refresh_token": ""}
	} else {
		update["$set"].(bson.M)["refresh_token"] = token
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// patch applies a partial $set and returns the post-update record.
func (r *UserRepository) patch(ctx context.Context, id string, fields bson.M) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	fields["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mu mongoUser
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, opts).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}
