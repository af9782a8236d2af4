package handler

import "github.com/labstack/echo/v4"

// apiResponse is the uniform success envelope returned on all 2xx responses.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// respond renders the success envelope.
func respond(c echo.Context, code int, data any, message string) error {
	return c.JSON(code, apiResponse{StatusCode: code, Data: data, Message: message, Success: true})
}

// --- Request types ---

// registerRequest carries the form fields of the multipart register call.
// The avatar and coverImage file parts are handled separately.
type registerRequest struct {
	FullName string `form:"fullName" json:"fullName" validate:"required"`
	Email    string `form:"email"    json:"email"    validate:"required,email"`
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// loginRequest needs a password plus at least one of username/email; the
// one-of check lives in the service.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
}

// --- Response types owned by the transport layer ---

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type subscriptionToggleResponse struct {
	Subscribed bool `json:"subscribed"`
}
