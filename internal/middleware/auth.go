package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"libraquant/internal/domain"
)

const sessionKey = "session"

// TokenCookie is the cookie that carries the session token for browsers
const TokenCookie = "token"

// SessionValidator resolves a bearer token to its live session
type SessionValidator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

// AuthMiddleware validates the session token and sets the session in context
func AuthMiddleware(validator SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Get token from Authorization header
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				// Try to get from cookie
				cookie, err := c.Cookie(TokenCookie)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication token")
				}
				authHeader = "Bearer " + cookie.Value
			}

			// Extract token from Bearer scheme
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			session, err := validator.Authenticate(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Session expired. Please log in again.")
			}

			c.Set(sessionKey, session)
			return next(c)
		}
	}
}

// AdminMiddleware checks if the authenticated user is an admin
func AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := GetSession(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Session not found in context")
		}

		if !session.User.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}

		return next(c)
	}
}

// GetSession extracts the session from echo context
func GetSession(c echo.Context) (*domain.Session, error) {
	session, ok := c.Get(sessionKey).(*domain.Session)
	if !ok || session == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return session, nil
}
