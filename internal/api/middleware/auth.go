package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const accessCookieName = "accessToken"

// Auth validates the access JWT and injects its claims into the context.
// The token is read from the Authorization header, falling back to the
// accessToken cookie so browser sessions work without a header.
func Auth(accessSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := parseAccessToken(raw, accessSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("user_id", claims["sub"])
			c.Set("username", claims["username"])

			return next(c)
		}
	}
}

// OptionalAuth injects claims when a valid token is present and continues
// anonymously otherwise. Used on public reads that personalize when they
// can (channel profiles).
func OptionalAuth(accessSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := tokenFromRequest(c); raw != "" {
				if claims, err := parseAccessToken(raw, accessSecret); err == nil {
					c.Set("user_id", claims["sub"])
					c.Set("username", claims["username"])
				}
			}
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	if cookie, err := c.Cookie(accessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func parseAccessToken(raw, secret string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}
