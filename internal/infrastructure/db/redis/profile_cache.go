package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viewtube/account-system/internal/api/metrics"
	"github.com/viewtube/account-system/internal/core/domain"
)

const (
	profileTTL       = 60 * time.Second
	profileKeyPrefix = "channel_profile"
)

// ProfileCache caches channel-profile views in Redis for a short TTL.
// Key format: channel_profile:<username>:<viewer_id> ("anon" for anonymous
// viewers). The viewer is part of the key because is_subscribed is
// viewer-specific.
type ProfileCache struct {
	client *redis.Client
}

// NewProfileCache creates a ProfileCache wrapping the given Redis client.
func NewProfileCache(client *redis.Client) *ProfileCache {
	return &ProfileCache{client: client}
}

// Get returns the cached profile, or (nil, nil) on a miss.
func (c *ProfileCache) Get(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	raw, err := c.client.Get(ctx, c.key(username, viewerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.ProfileCacheTotal.WithLabelValues("miss").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("profile cache get: %w", err)
	}

	var profile domain.ChannelProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("profile cache decode: %w", err)
	}
	metrics.ProfileCacheTotal.WithLabelValues("hit").Inc()
	return &profile, nil
}

// Set stores the profile for profileTTL.
func (c *ProfileCache) Set(ctx context.Context, username, viewerID string, profile *domain.ChannelProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(username, viewerID), raw, profileTTL).Err()
}

// InvalidateChannel removes every viewer's cached copy of the channel.
func (c *ProfileCache) InvalidateChannel(ctx context.Context, username string) error {
	pattern := fmt.Sprintf("%s:%s:*", profileKeyPrefix, username)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("profile cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("profile cache del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *ProfileCache) key(username, viewerID string) string {
	if viewerID == "" {
		viewerID = "anon"
	}
	return fmt.Sprintf("%s:%s:%s", profileKeyPrefix, username, viewerID)
}
