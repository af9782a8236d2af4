package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/viewtube/account-system/internal/core/domain"
)

// ProfileRepository runs the aggregation reads over users, subscriptions and
// videos, and owns the subscription-edge writes.
type ProfileRepository struct {
	db *mongo.Database
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type channelProfileDoc struct {
	Username                 string `bson:"username"`
	Email                    string `bson:"email"`
	FullName                 string `bson:"full_name"`
	Avatar                   string `bson:"avatar"`
	CoverImage               string `bson:"cover_image"`
	SubscriberCount          int64  `bson:"subscriber_count"`
	ChannelSubscribedToCount int64  `bson:"channels_subscribed_to_count"`
	IsSubscribed             bool   `bson:"is_subscribed"`
}

// ChannelProfile joins the subscription relation twice: channel-side edges
// yield subscriber_count (and the set is_subscribed is checked against),
// subscriber-side edges yield channels_subscribed_to_count. The order of the
// stages is fixed: lookups, then derives, then the public-field projection.
func (r *ProfileRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	isSubscribed := any(false)
	if viewerID != "" {
		viewerOID, err := primitive.ObjectIDFromHex(viewerID)
		if err == nil {
			isSubscribed = bson.M{"$in": bson.A{viewerOID, "$subscribers.subscriber"}}
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribed_to",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscriber_count":             bson.M{"$size": "$subscribers"},
			"channels_subscribed_to_count": bson.M{"$size": "$subscribed_to"},
			"is_subscribed":                isSubscribed,
		}}},
		{{Key: "$project", Value: bson.M{
			"full_name":                    1,
			"username":                     1,
			"email":                        1,
			"avatar":                       1,
			"cover_image":                  1,
			"subscriber_count":             1,
			"channels_subscribed_to_count": 1,
			"is_subscribed":                1,
		}}},
	}

	cursor, err := r.db.Collection(usersCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("channel profile aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []channelProfileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("channel profile decode: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrUserNotFound
	}

	doc := docs[0]
	return &domain.ChannelProfile{
		Username:                 doc.Username,
		Email:                    doc.Email,
		FullName:                 doc.FullName,
		Avatar:                   doc.Avatar,
		CoverImage:               doc.CoverImage,
		SubscriberCount:          doc.SubscriberCount,
		ChannelSubscribedToCount: doc.ChannelSubscribedToCount,
		IsSubscribed:             doc.IsSubscribed,
	}, nil
}

type videoOwnerDoc struct {
	FullName string `bson:"full_name"`
	Username string `bson:"username"`
	Avatar   string `bson:"avatar"`
}

type videoDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Thumbnail string             `bson:"thumbnail"`
	VideoFile string             `bson:"video_file"`
	Duration  float64            `bson:"duration"`
	Views     int64              `bson:"views"`
	Owner     videoOwnerDoc      `bson:"owner"`
	CreatedAt time.Time          `bson:"created_at"`
}

type watchHistoryDoc struct {
	WatchHistory []primitive.ObjectID `bson:"watch_history"`
	Videos       []videoDoc           `bson:"videos"`
}

// WatchHistory joins the user's watch_history ids against the videos
// collection and flattens each video's owner to a single public object.
// $lookup gives no ordering guarantee over the joined array, so the result
// is re-ordered to match the watch_history list before returning.
func (r *ProfileRepository) WatchHistory(ctx context.Context, userID string) ([]domain.VideoView, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": oid}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         videosCollection,
			"localField":   "watch_history",
			"foreignField": "_id",
			"as":           "videos",
			"pipeline": bson.A{
				bson.M{"$lookup": bson.M{
					"from":         usersCollection,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
					"pipeline": bson.A{
						bson.M{"$project": bson.M{"full_name": 1, "username": 1, "avatar": 1}},
					},
				}},
				bson.M{"$addFields": bson.M{"owner": bson.M{"$first": "$owner"}}},
			},
		}}},
		{{Key: "$project", Value: bson.M{"watch_history": 1, "videos": 1}}},
	}

	cursor, err := r.db.Collection(usersCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("watch history aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []watchHistoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("watch history decode: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrUserNotFound
	}

	byID := make(map[primitive.ObjectID]videoDoc, len(docs[0].Videos))
	for _, v := range docs[0].Videos {
		byID[v.ID] = v
	}

	views := make([]domain.VideoView, 0, len(docs[0].WatchHistory))
	for _, id := range docs[0].WatchHistory {
		v, ok := byID[id]
		if !ok {
			// Video deleted since it was watched; skip.
			continue
		}
		views = append(views, domain.VideoView{
			ID:        v.ID.Hex(),
			Title:     v.Title,
			Thumbnail: v.Thumbnail,
			VideoFile: v.VideoFile,
			Duration:  v.Duration,
			Views:     v.Views,
			Owner: domain.VideoOwner{
				FullName: v.Owner.FullName,
				Username: v.Owner.Username,
				Avatar:   v.Owner.Avatar,
			},
			CreatedAt: v.CreatedAt,
		})
	}
	return views, nil
}

func (r *ProfileRepository) AddSubscription(ctx context.Context, subscriberID, channelID string) error {
	subOID, err := primitive.ObjectIDFromHex(subscriberID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	chanOID, err := primitive.ObjectIDFromHex(channelID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	_, err = r.db.Collection(subscriptionsCollection).InsertOne(ctx, bson.M{
		"subscriber": subOID,
		"channel":    chanOID,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		// The unique (subscriber, channel) index makes a concurrent double
		// subscribe converge on a single edge.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *ProfileRepository) RemoveSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	subOID, err := primitive.ObjectIDFromHex(subscriberID)
	if err != nil {
		return false, domain.ErrUserNotFound
	}
	chanOID, err := primitive.ObjectIDFromHex(channelID)
	if err != nil {
		return false, domain.ErrUserNotFound
	}

	res, err := r.db.Collection(subscriptionsCollection).DeleteOne(ctx, bson.M{
		"subscriber": subOID,
		"channel":    chanOID,
	})
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return res.DeletedCount > 0, nil
}
