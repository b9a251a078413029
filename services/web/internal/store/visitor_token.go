package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const visitorIssuer = "dailyreport-web"

// ErrInvalidVisitorToken indicates a missing, tampered or expired visitor cookie.
var ErrInvalidVisitorToken = errors.New("invalid visitor token")

// VisitorTokens signs the visitor cookie with HS256.
type VisitorTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewVisitorTokens requires a secret of at least 32 bytes.
func NewVisitorTokens(secret string, ttl time.Duration) (*VisitorTokens, error) {
	if len(secret) < 32 {
		return nil, errors.New("visitor secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &VisitorTokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is how long an issued token stays valid.
func (v *VisitorTokens) TTL() time.Duration {
	return v.ttl
}

// Issue signs a token for visitorID.
func (v *VisitorTokens) Issue(visitorID string) (string, error) {
	now := v.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   visitorID,
		Issuer:    visitorIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign visitor token: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns the visitor id.
func (v *VisitorTokens) Parse(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrInvalidVisitorToken
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(visitorIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVisitorToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidVisitorToken
	}
	return claims.Subject, nil
}
