package ports

import (
	"context"

	"github.com/viewtube/account-system/internal/core/domain"
)

// RegisterInput carries all data needed to create an account. Avatar is
// required; CoverImagePath may be empty. The paths point at files already
// spooled to local disk by the transport layer.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput identifies a user by username and/or email; at least one must
// be set.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is the sanitized user plus the freshly issued session tokens.
type LoginResult struct {
	User   *domain.User
	Tokens TokenPair
}

// AccountService defines the account use cases.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, userID string) error
	RefreshSession(ctx context.Context, rawRefreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID, fullName, email string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (*domain.User, error)
}
