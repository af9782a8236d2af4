package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/viewtube/account-system/internal/core/domain"
	"github.com/viewtube/account-system/internal/core/ports"
)

// AccountService implements registration, session management and profile
// updates. It orchestrates the user repository, the token service and the
// media store; all of its state lives in those collaborators.
type AccountService struct {
	users  ports.UserRepository
	tokens ports.TokenService
	media  ports.MediaStore
	logger zerolog.Logger
}

func NewAccountService(users ports.UserRepository, tokens ports.TokenService, media ports.MediaStore, logger zerolog.Logger) *AccountService {
	return &AccountService{users: users, tokens: tokens, media: media, logger: logger}
}

// Register creates an account. Username and email are lowercased before the
// uniqueness check and the insert, so "Alice" and "alice" collide. The
// pre-check races with concurrent registrations; the unique indexes on the
// store settle the race and surface as ErrUserExists.
func (s *AccountService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(input.Password) == "" {
		return nil, domain.ErrMissingField
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	if input.AvatarPath == "" {
		return nil, domain.ErrMissingField
	}
	avatarURL, err := s.media.Upload(ctx, input.AvatarPath)
	if err != nil || avatarURL == "" {
		s.logger.Error().Err(err).Str("username", username).Msg("avatar upload failed")
		return nil, domain.ErrUploadFailed
	}

	var coverURL string
	if input.CoverImagePath != "" {
		// Cover image is optional: a failed upload degrades to no cover
		// rather than failing the registration.
		coverURL, err = s.media.Upload(ctx, input.CoverImagePath)
		if err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("cover image upload failed")
			coverURL = ""
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	// Fetch back the stored record so the caller sees exactly what was
	// persisted, minus the secret fields.
	stored, err := s.users.FindByID(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", stored.ID).Str("username", stored.Username).Msg("user registered")
	return stored.Sanitized(), nil
}

// Login verifies credentials and establishes a session. A wrong password is
// a client error (bad input), not an authorization failure, so it maps to
// ErrInvalidCredentials rather than ErrInvalidToken.
func (s *AccountService) Login(ctx context.Context, input ports.LoginInput) (*ports.LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" && email == "" {
		return nil, domain.ErrMissingField
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.LoginResult{User: user.Sanitized(), Tokens: *pair}, nil
}

// Logout revokes the stored refresh token. The transport layer clears the
// session cookies.
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

// RefreshSession rotates the session. Every failure from the verification
// path, including unexpected ones, is reported as ErrInvalidToken so that
// refresh never surfaces a 500 and never leaks verification internals.
func (s *AccountService) RefreshSession(ctx context.Context, rawRefreshToken string) (*ports.TokenPair, error) {
	userID, pair, err := s.tokens.VerifyRefresh(ctx, rawRefreshToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("refresh rejected")
		return nil, domain.ErrInvalidToken
	}
	s.logger.Debug().Str("user_id", userID).Msg("session refreshed")
	return pair, nil
}

// ChangePassword re-hashes and stores the new password after verifying the
// old one. The patch touches only the password_hash field.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return domain.ErrMissingField
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.SetPasswordHash(ctx, userID, string(hash))
}

// CurrentUser returns the sanitized record of the authenticated user.
func (s *AccountService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// UpdateProfile replaces fullName and email; both are required.
func (s *AccountService) UpdateProfile(ctx context.Context, userID, fullName, email string) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, domain.ErrMissingField
	}

	updated, err := s.users.UpdateProfile(ctx, userID, fullName, email)
	if err != nil {
		return nil, err
	}
	return updated.Sanitized(), nil
}

// UpdateAvatar uploads the new avatar and patches the user record.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID, localPath string) (*domain.User, error) {
	url, err := s.uploadRequired(ctx, localPath, "avatar")
	if err != nil {
		return nil, err
	}
	updated, err := s.users.SetAvatar(ctx, userID, url)
	if err != nil {
		return nil, err
	}
	return updated.Sanitized(), nil
}

// UpdateCoverImage uploads the new cover image and patches the user record.
func (s *AccountService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*domain.User, error) {
	url, err := s.uploadRequired(ctx, localPath, "cover_image")
	if err != nil {
		return nil, err
	}
	updated, err := s.users.SetCoverImage(ctx, userID, url)
	if err != nil {
		return nil, err
	}
	return updated.Sanitized(), nil
}

func (s *AccountService) uploadRequired(ctx context.Context, localPath, kind string) (string, error) {
	if localPath == "" {
		return "", domain.ErrMissingField
	}
	url, err := s.media.Upload(ctx, localPath)
	if err != nil || url == "" {
		s.logger.Error().Err(err).Str("kind", kind).Msg("media upload failed")
		return "", domain.ErrUploadFailed
	}
	return url, nil
}
