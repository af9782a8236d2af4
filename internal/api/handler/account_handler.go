package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/viewtube/account-system/internal/api/metrics"
	"github.com/viewtube/account-system/internal/core/domain"
	"github.com/viewtube/account-system/internal/core/ports"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// AccountHandler handles HTTP requests for account operations.
type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register creates a new account from a multipart form.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       mpfd
// @Produce      json
// @Param        fullName    formData  string  true   "Full name"
// @Param        email       formData  string  true   "Email"
// @Param        username    formData  string  true   "Username"
// @Param        password    formData  string  true   "Password"
// @Param        avatar      formData  file    true   "Avatar image"
// @Param        coverImage  formData  file    false  "Cover image"
// @Success      201  {object}  apiResponse
// @Failure      400  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Router       /users/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	avatarFH, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}
	avatarPath, avatarCleanup, err := spoolFormFile(avatarFH)
	if err != nil {
		return err
	}
	defer avatarCleanup()

	input := ports.RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		AvatarPath: avatarPath,
	}

	if coverFH, err := c.FormFile("coverImage"); err == nil {
		coverPath, coverCleanup, err := spoolFormFile(coverFH)
		if err != nil {
			return err
		}
		defer coverCleanup()
		input.CoverImagePath = coverPath
	}

	user, err := h.accounts.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.Inc()
	return respond(c, http.StatusCreated, user, "user registered successfully")
}

// Login authenticates by username and/or email and sets the session cookies.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Router       /users/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.accounts.Login(c.Request().Context(), ports.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	setAuthCookies(c, &res.Tokens)

	// Tokens ride in the body as well as the cookies so non-browser
	// clients can use them.
	return respond(c, http.StatusOK, echo.Map{
		"user":         res.User,
		"accessToken":  res.Tokens.AccessToken,
		"refreshToken": res.Tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout revokes the session and clears the cookies.
//
// @Summary      Logout
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse
// @Failure      401  {object}  map[string]any
// @Router       /users/logout [post]
func (h *AccountHandler) Logout(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.accounts.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	clearAuthCookies(c)
	return respond(c, http.StatusOK, nil, "user logged out")
}

// Refresh exchanges a refresh token (cookie or body) for a rotated pair.
//
// @Summary      Refresh the session tokens
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (falls back to cookie)"
// @Success      200   {object}  apiResponse
// @Failure      401   {object}  map[string]any
// @Router       /users/refresh-token [post]
func (h *AccountHandler) Refresh(c echo.Context) error {
	raw := ""
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var req refreshRequest
		if err := c.Bind(&req); err == nil {
			raw = req.RefreshToken
		}
	}

	pair, err := h.accounts.RefreshSession(c.Request().Context(), raw)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("rejected").Inc()
		return err
	}

	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	setAuthCookies(c, pair)
	return respond(c, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "access token refreshed")
}

// ChangePassword verifies the old password and replaces the hash.
//
// @Summary      Change the current user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Old and new password"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]any
// @Router       /users/change-password [post]
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.accounts.ChangePassword(c.Request().Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "password changed successfully")
}

// Current returns the authenticated user's sanitized record.
//
// @Summary      Get the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse
// @Router       /users/current [get]
func (h *AccountHandler) Current(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "current user fetched")
}

// UpdateAccount replaces fullName and email.
//
// @Summary      Update account details
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateAccountRequest  true  "New full name and email"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]any
// @Router       /users/update-account [patch]
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.accounts.UpdateProfile(c.Request().Context(), userID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "account details updated")
}

// UpdateAvatar replaces the avatar from a single multipart part named "avatar".
//
// @Summary      Update the avatar image
// @Tags         users
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        avatar  formData  file  true  "Avatar image"
// @Success      200     {object}  apiResponse
// @Failure      400     {object}  map[string]any
// @Router       /users/avatar [patch]
func (h *AccountHandler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar", h.accounts.UpdateAvatar)
}

// UpdateCoverImage replaces the cover image from a part named "coverImage".
//
// @Summary      Update the cover image
// @Tags         users
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        coverImage  formData  file  true  "Cover image"
// @Success      200         {object}  apiResponse
// @Failure      400         {object}  map[string]any
// @Router       /users/cover-image [patch]
func (h *AccountHandler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage", h.accounts.UpdateCoverImage)
}

// updateImage is the single-file contract shared by the two image update
// endpoints: exactly one part, named after the field it replaces.
func (h *AccountHandler) updateImage(c echo.Context, field string, update func(ctx context.Context, userID, localPath string) (*domain.User, error)) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile(field)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, field+" file is required")
	}
	localPath, cleanup, err := spoolFormFile(fh)
	if err != nil {
		return err
	}
	defer cleanup()

	kind := "avatar"
	if field == "coverImage" {
		kind = "cover_image"
	}

	start := time.Now()
	user, err := update(c.Request().Context(), userID, localPath)
	metrics.MediaUploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MediaUploadsTotal.WithLabelValues(kind, "error").Inc()
		return err
	}

	metrics.MediaUploadsTotal.WithLabelValues(kind, "ok").Inc()
	return respond(c, http.StatusOK, user, field+" updated successfully")
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "bad_password"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	default:
		return "bad_request"
	}
}

func setAuthCookies(c echo.Context, pair *ports.TokenPair) {
	c.SetCookie(authCookie(accessCookieName, pair.AccessToken, 0))
	c.SetCookie(authCookie(refreshCookieName, pair.RefreshToken, 0))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(authCookie(accessCookieName, "", -1))
	c.SetCookie(authCookie(refreshCookieName, "", -1))
}

func authCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
