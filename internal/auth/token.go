package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the lifetime of tokens minted by the CLI.
	DefaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "estate-bids"
)

// Tokens signs and verifies bearer tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a token signer. The secret must not be empty.
func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("EB_JWT_SECRET is required")
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a signed token for the given profile ID.
func (t *Tokens) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its subject.
func (t *Tokens) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("invalid token: missing subject")
	}
	return claims.Subject, nil
}
