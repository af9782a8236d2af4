package ports

import (
	"context"

	"github.com/viewtube/account-system/internal/core/domain"
)

// UserRepository defines the persistence interface for user records.
// Uniqueness of (username, email) is enforced by the store.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByUsernameOrEmail matches on whichever identifiers are non-empty.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) (*domain.User, error)
	SetAvatar(ctx context.Context, id, url string) (*domain.User, error)
	SetCoverImage(ctx context.Context, id, url string) (*domain.User, error)
	// SetPasswordHash and SetRefreshToken patch a single field; neither
	// touches any other part of the record. An empty token clears the
	// stored refresh token.
	SetPasswordHash(ctx context.Context, id, hash string) error
	SetRefreshToken(ctx context.Context, id, token string) error
}
