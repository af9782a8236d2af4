package ports

import (
	"context"

	"github.com/viewtube/account-system/internal/core/domain"
)

// ProfileRepository runs the aggregation reads over users, subscriptions and
// videos, plus the subscription-edge writes.
type ProfileRepository interface {
	// ChannelProfile resolves the channel view for username (matched
	// case-insensitively via lowercase normalization). viewerID may be
	// empty, in which case IsSubscribed is always false.
	ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	// WatchHistory returns the user's watched videos in list order, each
	// joined with its owner's public fields.
	WatchHistory(ctx context.Context, userID string) ([]domain.VideoView, error)
	AddSubscription(ctx context.Context, subscriberID, channelID string) error
	// RemoveSubscription reports whether an edge existed and was removed.
	RemoveSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}
