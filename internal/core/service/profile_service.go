package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/viewtube/account-system/internal/core/domain"
	"github.com/viewtube/account-system/internal/core/ports"
)

// ProfileService serves the channel-profile and watch-history reads and the
// subscription toggle. Channel profiles are cached briefly in the profile
// cache; cache failures fall through to the repository.
type ProfileService struct {
	profiles ports.ProfileRepository
	users    ports.UserRepository
	cache    ports.ProfileCache
	logger   zerolog.Logger
}

func NewProfileService(profiles ports.ProfileRepository, users ports.UserRepository, cache ports.ProfileCache, logger zerolog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, users: users, cache: cache, logger: logger}
}

// ChannelProfile resolves the public channel view of username as seen by
// viewerID (empty for anonymous viewers).
func (s *ProfileService) ChannelProfile(ctx context.Context, viewerID, username string) (*domain.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, domain.ErrMissingField
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, username, viewerID); err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("profile cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	profile, err := s.profiles.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, username, viewerID, profile); err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("profile cache write failed")
		}
	}
	return profile, nil
}

// WatchHistory returns the user's watched videos in list order.
func (s *ProfileService) WatchHistory(ctx context.Context, userID string) ([]domain.VideoView, error) {
	return s.profiles.WatchHistory(ctx, userID)
}

// ToggleSubscription flips the subscriber→channel edge. The channel's cached
// profiles are invalidated so the new count is visible on the next read.
func (s *ProfileService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if channelID == "" {
		return false, domain.ErrMissingField
	}
	if subscriberID == channelID {
		return false, domain.ErrSelfSubscription
	}

	channel, err := s.users.FindByID(ctx, channelID)
	if err != nil {
		return false, err
	}

	removed, err := s.profiles.RemoveSubscription(ctx, subscriberID, channelID)
	if err != nil {
		return false, err
	}

	subscribed := false
	if !removed {
		if err := s.profiles.AddSubscription(ctx, subscriberID, channelID); err != nil {
			return false, err
		}
		subscribed = true
	}

	if s.cache != nil {
		if err := s.cache.InvalidateChannel(ctx, channel.Username); err != nil {
			s.logger.Warn().Err(err).Str("channel", channel.Username).Msg("profile cache invalidation failed")
		}
	}

	s.logger.Info().
		Str("subscriber", subscriberID).
		Str("channel", channelID).
		Bool("subscribed", subscribed).
		Msg("subscription toggled")
	return subscribed, nil
}
