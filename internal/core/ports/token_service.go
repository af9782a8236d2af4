package ports

import "context"

// TokenPair is one session's worth of credentials: a short-lived access JWT
// and a long-lived refresh JWT.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService owns the session token lifecycle. The refresh token is
// persisted on the user record: exactly one refresh token is live per user,
// and issuing a new one invalidates the previous.
type TokenService interface {
	// Issue signs a new pair and persists the refresh token.
	Issue(ctx context.Context, userID string) (*TokenPair, error)
	// VerifyRefresh validates raw against signature, user existence and the
	// stored value, then rotates: a fresh pair is issued and persisted.
	// Every failure mode is domain.ErrInvalidToken.
	VerifyRefresh(ctx context.Context, raw string) (string, *TokenPair, error)
	// Revoke clears the stored refresh token, ending the session server-side.
	Revoke(ctx context.Context, userID string) error
}
