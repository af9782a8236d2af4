package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/viewtube/account-system/internal/core/domain"
	"github.com/viewtube/account-system/internal/core/ports"
)

type stubAccountService struct {
	registerFn func(ctx context.Context, input ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, input ports.LoginInput) (*ports.LoginResult, error)
	logoutFn   func(ctx context.Context, userID string) error
	refreshFn  func(ctx context.Context, raw string) (*ports.TokenPair, error)
}

func (s *stubAccountService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, input)
}

func (s *stubAccountService) Login(ctx context.Context, input ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, input)
}

func (s *stubAccountService) Logout(ctx context.Context, userID string) error {
	return s.logoutFn(ctx, userID)
}

func (s *stubAccountService) RefreshSession(ctx context.Context, raw string) (*ports.TokenPair, error) {
	return s.refreshFn(ctx, raw)
}

func (s *stubAccountService) ChangePassword(context.Context, string, string, string) error {
	return nil
}

func (s *stubAccountService) CurrentUser(context.Context, string) (*domain.User, error) {
	return &domain.User{ID: "user_1", Username: "alice"}, nil
}

func (s *stubAccountService) UpdateProfile(context.Context, string, string, string) (*domain.User, error) {
	return &domain.User{ID: "user_1", Username: "alice"}, nil
}

func (s *stubAccountService) UpdateAvatar(context.Context, string, string) (*domain.User, error) {
	return &domain.User{ID: "user_1", Username: "alice"}, nil
}

func (s *stubAccountService) UpdateCoverImage(context.Context, string, string) (*domain.User, error) {
	return &domain.User{ID: "user_1", Username: "alice"}, nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func multipartRegisterBody(t *testing.T, withAvatar bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fields := map[string]string{
		"fullName": "Alice A",
		"email":    "a@x.com",
		"username": "alice",
		"password": "p1",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if withAvatar {
		part, err := mw.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("create avatar part: %v", err)
		}
		if _, err := part.Write([]byte("fake-png-bytes")); err != nil {
			t.Fatalf("write avatar part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func TestAccountHandler_Register_Success(t *testing.T) {
	e := newTestEcho()

	var seenInput ports.RegisterInput
	stub := &stubAccountService{
		registerFn: func(_ context.Context, input ports.RegisterInput) (*domain.User, error) {
			seenInput = input
			return &domain.User{ID: "user_1", Username: "alice", Email: "a@x.com", Avatar: "https://cdn/a.png"}, nil
		},
	}
	h := NewAccountHandler(stub)

	body, contentType := multipartRegisterBody(t, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	if seenInput.AvatarPath == "" {
		t.Fatalf("avatar was not spooled to a local path")
	}
	if _, err := os.Stat(seenInput.AvatarPath); !os.IsNotExist(err) {
		t.Fatalf("spooled avatar file not cleaned up: %s", seenInput.AvatarPath)
	}
	if seenInput.Username != "alice" || seenInput.Password != "p1" {
		t.Fatalf("unexpected register input: %+v", seenInput)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["success"] != true || resp["statusCode"] != float64(201) {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	raw := rec.Body.String()
	if strings.Contains(raw, "password") || strings.Contains(raw, "refreshToken") {
		t.Fatalf("register response leaks secret fields: %s", raw)
	}
}

func TestAccountHandler_Register_MissingAvatar(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("service should not be called without avatar")
			return nil, nil
		},
	}
	h := NewAccountHandler(stub)

	body, contentType := multipartRegisterBody(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Register(c)
	var he *echo.HTTPError
	if err == nil || !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAccountHandler_Register_Conflict(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := NewAccountHandler(stub)

	body, contentType := multipartRegisterBody(t, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists to propagate, got %v", err)
	}
}

func TestAccountHandler_Login_SetsCookies(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		loginFn: func(_ context.Context, input ports.LoginInput) (*ports.LoginResult, error) {
			if input.Username != "alice" || input.Password != "p1" {
				t.Fatalf("unexpected login input: %+v", input)
			}
			return &ports.LoginResult{
				User:   &domain.User{ID: "user_1", Username: "alice"},
				Tokens: ports.TokenPair{AccessToken: "acc", RefreshToken: "ref"},
			}, nil
		},
	}
	h := NewAccountHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"username":"alice","password":"p1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	byName := map[string]*http.Cookie{}
	for _, ck := range cookies {
		byName[ck.Name] = ck
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		ck, ok := byName[name]
		if !ok {
			t.Fatalf("cookie %s not set", name)
		}
		if !ck.HttpOnly || !ck.Secure {
			t.Fatalf("cookie %s must be httpOnly and secure", name)
		}
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	data, _ := resp["data"].(map[string]any)
	if data["accessToken"] != "acc" || data["refreshToken"] != "ref" {
		t.Fatalf("tokens missing from body: %+v", data)
	}
}

func TestAccountHandler_Login_WrongPassword(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		loginFn: func(context.Context, ports.LoginInput) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAccountHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"username":"alice","password":"bad"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials to propagate, got %v", err)
	}
}

func TestAccountHandler_Refresh_FromCookie(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		refreshFn: func(_ context.Context, raw string) (*ports.TokenPair, error) {
			if raw != "old-refresh" {
				t.Fatalf("expected cookie token, got %q", raw)
			}
			return &ports.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}, nil
		},
	}
	h := NewAccountHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	found := false
	for _, ck := range cookies {
		if ck.Name == "refreshToken" && ck.Value == "ref2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("rotated refresh token not set as cookie")
	}
}

func TestAccountHandler_Refresh_FromBody(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		refreshFn: func(_ context.Context, raw string) (*ports.TokenPair, error) {
			if raw != "body-refresh" {
				t.Fatalf("expected body token, got %q", raw)
			}
			return &ports.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}, nil
		},
	}
	h := NewAccountHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", strings.NewReader(`{"refreshToken":"body-refresh"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestAccountHandler_Refresh_Invalid(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		refreshFn: func(context.Context, string) (*ports.TokenPair, error) {
			return nil, domain.ErrInvalidToken
		},
	}
	h := NewAccountHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Refresh(c); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken to propagate, got %v", err)
	}
}

func TestAccountHandler_Logout_ClearsCookies(t *testing.T) {
	e := newTestEcho()
	stub := &stubAccountService{
		logoutFn: func(_ context.Context, userID string) error {
			if userID != "user_1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return nil
		},
	}
	h := NewAccountHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "user_1")

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "accessToken" || ck.Name == "refreshToken" {
			if ck.Value != "" || ck.MaxAge >= 0 {
				t.Fatalf("cookie %s not cleared: %+v", ck.Name, ck)
			}
		}
	}
}

func TestAccountHandler_Logout_WithoutClaims(t *testing.T) {
	e := newTestEcho()
	h := NewAccountHandler(&stubAccountService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Logout(c)
	var he *echo.HTTPError
	if err == nil || !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}
