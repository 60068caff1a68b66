package dto

import "libraquant/internal/domain"

// UserOutput represents user details in API responses
type UserOutput struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
	DeviceID    string `json:"device_id,omitempty"`
}

// NewUserOutput converts a user, never exposing the password
func NewUserOutput(u domain.User) *UserOutput {
	return &UserOutput{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		Name:        u.Name,
		ExpiryDate:  u.ExpiryDate,
		IsAdmin:     u.IsAdmin,
		DeviceID:    u.DeviceID,
	}
}

// UpdateUserRequest represents an admin edit of a subscriber
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	ExpiryDate *string `json:"expiry_date"`
	IsAdmin    *bool   `json:"is_admin"`
	Password   *string `json:"password"`
}

// SoundPreference is the alert tone toggle
type SoundPreference struct {
	Enabled bool `json:"enabled"`
}
