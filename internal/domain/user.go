package domain

import (
	"strings"
	"time"
)

// ExpiryLayout is the date format of User.ExpiryDate
const ExpiryLayout = "2006-01-02"

// User represents a subscriber row from the remote user sheet
type User struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
	ExpiryDate  string `json:"expiryDate"`
	IsAdmin     bool   `json:"isAdmin"`
	Password    string `json:"password,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
}

// Expired reports whether the subscription ended before the day of now.
// An empty or unreadable expiry date never expires.
func (u *User) Expired(now time.Time) bool {
	raw := strings.TrimSpace(u.ExpiryDate)
	if raw == "" {
		return false
	}
	if len(raw) > len(ExpiryLayout) {
		raw = raw[:len(ExpiryLayout)]
	}
	expiry, err := time.ParseInLocation(ExpiryLayout, raw, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return expiry.Before(today)
}

// Public returns a copy safe to persist in a session record
func (u User) Public() User {
	u.Password = ""
	return u
}

// FindUserByPhone returns the user with the given phone number, or nil
func FindUserByPhone(users []User, phone string) *User {
	for i := range users {
		if users[i].PhoneNumber == phone {
			return &users[i]
		}
	}
	return nil
}

// Session is an authenticated user plus the moment it was issued
type Session struct {
	User     User      `json:"user"`
	IssuedAt time.Time `json:"issuedAt"`
	Token    string    `json:"token"`
}

// ValidAt reports whether the session is still inside its TTL at now
func (s *Session) ValidAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.IssuedAt) < ttl
}

// ExpiresAt returns the instant the session stops being valid
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.IssuedAt.Add(ttl)
}
