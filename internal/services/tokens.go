package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"natours/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	msgInvalidToken = "Invalid token. Please log in again!"
	msgExpiredToken = "Your token has expired! Please log in again."
)

// Claims is the signed credential payload.
type Claims struct {
	ID domain.ID `json:"id"`
	jwt.RegisteredClaims
}

// Issued is the zero time when the token carries no iat.
func (c Claims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// TokenManager issues and verifies HS256 credentials.
type TokenManager struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

func (m *TokenManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Sign issues a token for the user id.
func (m *TokenManager) Sign(id domain.ID) (string, error) {
	now := m.now()
	claims := Claims{
		ID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(id), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Failures are AuthenticationErrors.
func (m *TokenManager) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, domain.AuthenticationError{Msg: msgExpiredToken, Err: err}
		}
		return Claims{}, domain.AuthenticationError{Msg: msgInvalidToken, Err: err}
	}
	if claims.ID <= 0 {
		return Claims{}, domain.AuthenticationError{Msg: msgInvalidToken}
	}
	return claims, nil
}
