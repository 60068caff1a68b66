package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"libraquant/internal/domain"
)

// Response is the envelope every API call answers with. Message is always
// safe to show on screen; Code is a stable machine-readable reason.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes that are not login rejections
const (
	CodeSubscriptionExpired = "subscription_expired"
	CodeNetwork             = "network"
	CodeInternal            = "internal"
)

// SuccessResponse sends a 200 with data
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Status: "success", Data: data})
}

// SuccessMessageResponse sends a 200 with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Status: "success", Message: message, Data: data})
}

// CreatedResponse sends a 201
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Status: "success", Data: data})
}

// ErrorResponse sends an error envelope with a display message
func ErrorResponse(c echo.Context, statusCode int, message, code string) error {
	return c.JSON(statusCode, Response{Status: "error", Message: message, Code: code})
}

// BadRequestResponse sends a 400
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, "")
}

// UnauthorizedResponse sends a 401
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, message, "")
}

// ForbiddenResponse sends a 403
func ForbiddenResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusForbidden, message, "")
}

// NotFoundResponse sends a 404
func NotFoundResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, message, "")
}

// FailureResponse renders err through domain.UserMessage. The raw error is
// logged and never sent to the client.
func FailureResponse(c echo.Context, statusCode int, err error) error {
	if statusCode >= http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return ErrorResponse(c, statusCode, domain.UserMessage(err), ErrorCode(err))
}

// InternalServerErrorResponse sends a 500 for an unexpected failure
func InternalServerErrorResponse(c echo.Context, err error) error {
	return FailureResponse(c, http.StatusInternalServerError, err)
}

// ErrorCode classifies err for the envelope's code field
func ErrorCode(err error) string {
	var (
		ae *domain.AuthError
		fe *domain.FormatError
		ne *domain.NetworkError
	)
	switch {
	case errors.Is(err, domain.ErrSubscriptionExpired):
		return CodeSubscriptionExpired
	case errors.As(err, &ae):
		return string(ae.Code)
	case errors.As(err, &fe):
		return string(fe.Reason)
	case errors.As(err, &ne):
		return CodeNetwork
	default:
		return CodeInternal
	}
}
