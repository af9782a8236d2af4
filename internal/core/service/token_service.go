package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/viewtube/account-system/internal/core/domain"
	"github.com/viewtube/account-system/internal/core/ports"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 10 * 24 * time.Hour
)

// TokenService issues, rotates and revokes the access/refresh token pair.
// Access and refresh tokens are signed with distinct secrets and TTLs; the
// refresh token is additionally persisted on the user record so that only
// the most recently issued one is honoured.
type TokenService struct {
	users         ports.UserRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(users ports.UserRepository, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenService{
		users:         users,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Issue signs a fresh pair for userID and persists the refresh token. The
// persistence path patches the single refresh_token field, so the stored
// password hash is never re-processed by this save.
func (s *TokenService) Issue(ctx context.Context, userID string) (*ports.TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair, err := s.sign(user)
	if err != nil {
		return nil, fmt.Errorf("sign token pair: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return pair, nil
}

// VerifyRefresh checks raw against the refresh secret and against the value
// currently stored on the user's record. A token that decodes to a real user
// but no longer matches the stored value is stale (rotated away or logged
// out) and is rejected the same way as a forged one. On success the session
// rotates: a new pair is issued and persisted, and the previous refresh
// token stops working.
func (s *TokenService) VerifyRefresh(ctx context.Context, raw string) (string, *ports.TokenPair, error) {
	if raw == "" {
		return "", nil, domain.ErrInvalidToken
	}

	userID, err := s.parseRefresh(raw)
	if err != nil {
		return "", nil, domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidToken
		}
		return "", nil, err
	}

	if user.RefreshToken == "" || user.RefreshToken != raw {
		return "", nil, domain.ErrInvalidToken
	}

	pair, err := s.sign(user)
	if err != nil {
		return "", nil, fmt.Errorf("sign token pair: %w", err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return "", nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return user.ID, pair, nil
}

// Revoke clears the stored refresh token. Any outstanding client-held
// refresh token fails the stored-value comparison from then on.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	return s.users.SetRefreshToken(ctx, userID, "")
}

func (s *TokenService) sign(user *domain.User) (*ports.TokenPair, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	})
	accessToken, err := access.SignedString(s.accessSecret)
	if err != nil {
		return nil, err
	}

	// jti keeps back-to-back rotations within the same second from
	// producing an identical signed string.
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"jti": tokenID(),
		"iat": now.Unix(),
		"exp": now.Add(s.refreshTTL).Unix(),
	})
	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &ports.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// tokenID returns a random hex token identifier.
func tokenID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%016x", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", b)
}

func (s *TokenService) parseRefresh(raw string) (string, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.refreshSecret, nil
	})
	if err != nil || !tkn.Valid {
		return "", domain.ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", domain.ErrInvalidToken
	}
	return sub, nil
}
