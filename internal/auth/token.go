// Package auth issues and verifies the bearer tokens carried by sessions.
package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"libraquant/internal/domain"
)

const devSecret = "default-secret-change-in-production"

// Claims are the JWT claims of a session token
type Claims struct {
	UserID  string `json:"user_id"`
	Phone   string `json:"phone"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenIssuer signs session tokens with a shared HMAC secret
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates an issuer; an empty secret falls back to a
// development value
func NewTokenIssuer(secret string) *TokenIssuer {
	if secret == "" {
		log.Println("[WARN] JWT_SECRET not set, using development secret")
		secret = devSecret
	}
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue signs a token for user, valid for ttl from issuedAt
func (t *TokenIssuer) Issue(user domain.User, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:  user.ID,
		Phone:   user.PhoneNumber,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.PhoneNumber,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse checks the signature and returns the claims. Expiry is not checked
// here: the session record's issue time is authoritative.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
