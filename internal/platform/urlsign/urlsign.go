// Package urlsign issues and verifies time-limited download URLs for stored
// objects. The URL carries an HS256 token naming the object key.
package urlsign

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conductores/driver-registry-api/internal/ports/out/clock"
)

const audience = "files"

var (
	ErrInvalidToken = errors.New("invalid download token")
	ErrExpiredToken = errors.New("download token expired")
)

type claims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// Signer signs object keys into download URLs under {baseURL}/files.
type Signer struct {
	secret  []byte
	baseURL string
	clock   clock.Clock
}

func NewSigner(secret, baseURL string, clk clock.Clock) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("url signing secret must be at least 16 bytes")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}
	return &Signer{secret: []byte(secret), baseURL: baseURL, clock: clk}, nil
}

// Sign returns a download URL for key that expires after ttl.
func (s *Signer) Sign(key string, ttl time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("empty object key")
	}
	now := s.clock.Now()
	exp := now.Add(ttl).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return s.baseURL + "/files?token=" + url.QueryEscape(signed), exp, nil
}

// Verify checks the token signature and expiry and returns the object key.
func (s *Signer) Verify(token string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	default:
		return "", ErrInvalidToken
	}
	if c.Key == "" {
		return "", ErrInvalidToken
	}
	return c.Key, nil
}
