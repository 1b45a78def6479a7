// Package auth verifies the bearer tokens issued by the external identity
// provider. The marketplace never authenticates anyone itself: a token
// that verifies against the shared secret is taken as proof that the
// provider already did, and its claims become the request principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/isakhq/marketplace/internal/core/domain"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Claims is the token payload agreed with the identity provider. Subject
// carries the principal ID.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates provider-issued tokens with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the embedded principal.
func (v *Verifier) Verify(tokenString string) (*domain.Principal, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &domain.Principal{
		ID:        claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		AvatarRef: claims.Picture,
	}, nil
}

// Issue signs a token for the given principal. In production the identity
// provider does this; the method exists for tests and local tooling that
// stand in for it.
func (v *Verifier) Issue(p *domain.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:    p.Name,
		Email:   p.Email,
		Picture: p.AvatarRef,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
