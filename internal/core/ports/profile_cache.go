package ports

import (
	"context"

	"github.com/viewtube/account-system/internal/core/domain"
)

// ProfileCache is a short-TTL cache for channel profiles, keyed by
// (username, viewer). A nil profile with nil error means cache miss.
// Callers treat cache errors as misses; the cache is never authoritative.
type ProfileCache interface {
	Get(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	Set(ctx context.Context, username, viewerID string, profile *domain.ChannelProfile) error
	// InvalidateChannel drops every cached view of the channel, across all
	// viewers.
	InvalidateChannel(ctx context.Context, username string) error
}
