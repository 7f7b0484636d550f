// Package auth issues and verifies the bearer tokens that identify callers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	issuer          = "safe-shortener"
)

var ErrEmptySecret = errors.New("jwt secret must not be empty")

type claims struct {
	Role entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs HS256 tokens whose subject is the user id and whose role
// claim carries the user's role at issue time.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (m *TokenManager) Issue(user *entity.User) (string, time.Time, error) {
	const op = "adapter.auth.TokenManager.Issue"

	now := m.now()
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: failed to sign token: %w", op, err)
	}

	return signed, expiresAt, nil
}

// Parse verifies the token and returns the caller it identifies. Every failure
// wraps entity.ErrUnauthorized.
func (m *TokenManager) Parse(tokenString string) (entity.Caller, error) {
	const op = "adapter.auth.TokenManager.Parse"

	var c claims

	_, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return entity.Caller{}, fmt.Errorf("%s: %w: %w", op, entity.ErrUnauthorized, err)
	}

	if c.Subject == "" || !c.Role.Valid() {
		return entity.Caller{}, fmt.Errorf("%s: %w: malformed claims", op, entity.ErrUnauthorized)
	}

	return entity.Caller{ID: c.Subject, Role: c.Role}, nil
}
