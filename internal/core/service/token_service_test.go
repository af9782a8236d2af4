package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/viewtube/account-system/internal/core/domain"
)

// memUserRepo is an in-memory ports.UserRepository shared by the service
// tests in this package.
type memUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	copy := cloneUser(user)
	copy.ID = fmt.Sprintf("user_%d", r.seq)
	copy.CreatedAt = time.Now().UTC()
	copy.UpdatedAt = copy.CreatedAt
	r.users[copy.ID] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) UpdateProfile(_ context.Context, id, fullName, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.FullName = fullName
	u.Email = email
	return cloneUser(u), nil
}

func (r *memUserRepo) SetAvatar(_ context.Context, id, url string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Avatar = url
	return cloneUser(u), nil
}

func (r *memUserRepo) SetCoverImage(_ context.Context, id, url string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.CoverImage = url
	return cloneUser(u), nil
}

func (r *memUserRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memUserRepo) SetRefreshToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = token
	return nil
}

func (r *memUserRepo) mustCreate(t *testing.T, user *domain.User) *domain.User {
	t.Helper()
	created, err := r.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return created
}

func newTestTokenService(repo *memUserRepo) *TokenService {
	return NewTokenService(repo, "access-secret", "refresh-secret", time.Minute, time.Hour)
}

func TestTokenService_Issue_PersistsRefreshToken(t *testing.T) {
	repo := newMemUserRepo()
	user := repo.mustCreate(t, &domain.User{Username: "alice", Email: "a@x.com"})
	svc := newTestTokenService(repo)

	pair, err := svc.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	stored, _ := repo.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != pair.RefreshToken {
		t.Fatalf("refresh token not persisted on user record")
	}
}

func TestTokenService_Issue_SignsWithDistinctSecrets(t *testing.T) {
	repo := newMemUserRepo()
	user := repo.mustCreate(t, &domain.User{Username: "alice", Email: "a@x.com"})
	svc := newTestTokenService(repo)

	pair, err := svc.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(pair.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("access-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("access token invalid under access secret: %v", err)
	}
	if claims["sub"] != user.ID {
		t.Fatalf("expected sub=%s, got %v", user.ID, claims["sub"])
	}

	// The refresh token must not verify under the access secret.
	if _, err := jwt.Parse(pair.RefreshToken, func(*jwt.Token) (interface{}, error) {
		return []byte("access-secret"), nil
	}); err == nil {
		t.Fatalf("refresh token verified under access secret")
	}
}

func TestTokenService_VerifyRefresh_RotatesPair(t *testing.T) {
	repo := newMemUserRepo()
	user := repo.mustCreate(t, &domain.User{Username: "alice", Email: "a@x.com"})
	svc := newTestTokenService(repo)

	first, err := svc.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	gotID, second, err := svc.VerifyRefresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh returned error: %v", err)
	}
	if gotID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, gotID)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("rotation produced an identical refresh token")
	}

	// The rotated-away token no longer matches the stored value.
	if _, _, err := svc.VerifyRefresh(context.Background(), first.RefreshToken); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for stale token, got %v", err)
	}

	// The fresh one still works.
	if _, _, err := svc.VerifyRefresh(context.Background(), second.RefreshToken); err != nil {
		t.Fatalf("fresh refresh token rejected: %v", err)
	}
}

func TestTokenService_VerifyRefresh_AfterRevoke(t *testing.T) {
	repo := newMemUserRepo()
	user := repo.mustCreate(t, &domain.User{Username: "alice", Email: "a@x.com"})
	svc := newTestTokenService(repo)

	pair, err := svc.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if err := svc.Revoke(context.Background(), user.ID); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != "" {
		t.Fatalf("expected stored refresh token cleared, got %q", stored.RefreshToken)
	}

	if _, _, err := svc.VerifyRefresh(context.Background(), pair.RefreshToken); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken after revoke, got %v", err)
	}
}

func TestTokenService_VerifyRefresh_Garbage(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestTokenService(repo)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, _, err := svc.VerifyRefresh(context.Background(), raw); err != domain.ErrInvalidToken {
			t.Fatalf("raw=%q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestTokenService_VerifyRefresh_WrongSecret(t *testing.T) {
	repo := newMemUserRepo()
	user := repo.mustCreate(t, &domain.User{Username: "alice", Email: "a@x.com"})
	svc := newTestTokenService(repo)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := forged.SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}

	if _, _, err := svc.VerifyRefresh(context.Background(), raw); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for forged token, got %v", err)
	}
}

func TestTokenService_VerifyRefresh_UnknownUser(t *testing.T) {
	repo := newMemUserRepo()
	user := repo.mustCreate(t, &domain.User{Username: "alice", Email: "a@x.com"})
	svc := newTestTokenService(repo)

	pair, err := svc.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	repo.mu.Lock()
	delete(repo.users, user.ID)
	repo.mu.Unlock()

	if _, _, err := svc.VerifyRefresh(context.Background(), pair.RefreshToken); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for deleted user, got %v", err)
	}
}
