package domain

import (
	"errors"
	"fmt"
)

// NetworkError is a transport-level failure talking to the remote sheet
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FormatReason explains why a response body was rejected
type FormatReason string

// FormatReason constants
const (
	FormatBlocked   FormatReason = "blocked"
	FormatMalformed FormatReason = "malformed"
)

// FormatError means the endpoint answered, but not with usable JSON
type FormatError struct {
	Reason FormatReason
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote response %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("remote response %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// AuthCode identifies a login failure
type AuthCode string

// AuthCode constants
const (
	AuthInvalidInput       AuthCode = "invalid_input"
	AuthInvalidCredentials AuthCode = "invalid_credentials"
	AuthAccessDenied       AuthCode = "access_denied"
	AuthDeviceLocked       AuthCode = "device_locked"
	AuthServerUnavailable  AuthCode = "server_unavailable"
)

// AuthError is a login rejection
type AuthError struct {
	Code AuthCode
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Code, e.Err)
	}
	return "auth " + string(e.Code)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError with an optional cause
func NewAuthError(code AuthCode, cause error) *AuthError {
	return &AuthError{Code: code, Err: cause}
}

var (
	// ErrSubscriptionExpired is returned when a subscriber's plan has lapsed
	ErrSubscriptionExpired = errors.New("subscription expired")
	// ErrNotFound is returned for unknown signal, watchlist or user keys
	ErrNotFound = errors.New("not found")
	// ErrNoSession is returned when no valid session is stored
	ErrNoSession = errors.New("no active session")
	// ErrInvalidInput is returned for admin commands with missing or bad fields
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned when adding a key that is already present
	ErrAlreadyExists = errors.New("already exists")
)

// IsAuthCode reports whether err is an AuthError with the given code
func IsAuthCode(err error, code AuthCode) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == code
}

// UserMessage turns an error into text safe to show on screen
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		fe *FormatError
		ne *NetworkError
		ae *AuthError
	)
	switch {
	case errors.Is(err, ErrSubscriptionExpired):
		return "Your subscription has expired. Contact admin to renew access."
	case errors.As(err, &ae):
		switch ae.Code {
		case AuthInvalidInput:
			return "Enter a valid 10-digit number and password."
		case AuthInvalidCredentials:
			return "Invalid credentials."
		case AuthAccessDenied:
			return "Access Denied. Contact Admin for activation."
		case AuthDeviceLocked:
			return "Account locked to another device. Contact admin to reset it."
		default:
			return "Server busy. Try again later."
		}
	case errors.As(err, &fe):
		if fe.Reason == FormatBlocked {
			return "The data script returned a login page. Redeploy it with access set to 'Anyone', then retry."
		}
		return "The data script returned an unreadable response. Check its output, then retry."
	case errors.As(err, &ne):
		return "Cannot reach the signal server. Showing cached data; retrying automatically."
	default:
		return "Something went wrong. Try again."
	}
}
