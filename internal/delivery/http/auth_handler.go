package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"libraquant/internal/delivery/http/dto"
	"libraquant/internal/domain"
	"libraquant/internal/middleware"
	"libraquant/internal/usecase"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	terminal *usecase.Terminal
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(terminal *usecase.Terminal) *AuthHandler {
	return &AuthHandler{
		terminal: terminal,
	}
}

// Login handles subscriber login
// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	session, err := h.terminal.Login(c.Request().Context(), req.Phone, req.Password)
	if err != nil {
		return authErrorResponse(c, err)
	}

	ttl := h.terminal.SessionTTL()
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})

	return SuccessResponse(c, dto.NewLoginResponse(session, ttl))
}

// Logout clears the session and stops syncing
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.terminal.Logout(c.Request().Context()); err != nil {
		return InternalServerErrorResponse(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	return SuccessMessageResponse(c, "Logged out", nil)
}

// GetSession returns the authenticated session
// GET /api/auth/session
func (h *AuthHandler) GetSession(c echo.Context) error {
	session, err := middleware.GetSession(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	deviceID, err := h.terminal.DeviceID(c.Request().Context())
	if err != nil {
		return InternalServerErrorResponse(c, err)
	}

	ttl := h.terminal.SessionTTL()
	return SuccessResponse(c, dto.SessionOutput{
		User:      dto.NewUserOutput(session.User),
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt(ttl),
		DeviceID:  deviceID,
	})
}

// authErrorResponse maps a login failure to its HTTP status
func authErrorResponse(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrSubscriptionExpired) {
		return FailureResponse(c, http.StatusForbidden, err)
	}

	var ae *domain.AuthError
	if !errors.As(err, &ae) {
		return InternalServerErrorResponse(c, err)
	}

	switch ae.Code {
	case domain.AuthInvalidInput:
		return FailureResponse(c, http.StatusBadRequest, err)
	case domain.AuthInvalidCredentials, domain.AuthAccessDenied:
		return FailureResponse(c, http.StatusUnauthorized, err)
	case domain.AuthDeviceLocked:
		return FailureResponse(c, http.StatusForbidden, err)
	default:
		return FailureResponse(c, http.StatusServiceUnavailable, err)
	}
}
