package ports

import (
	"context"

	"github.com/viewtube/account-system/internal/core/domain"
)

// ProfileService defines the read-side channel queries and the subscription
// toggle.
type ProfileService interface {
	ChannelProfile(ctx context.Context, viewerID, username string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]domain.VideoView, error)
	// ToggleSubscription flips the subscriber→channel edge and reports the
	// resulting state (true = now subscribed).
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}
