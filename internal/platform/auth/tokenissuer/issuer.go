// Package tokenissuer mints RS256 access tokens for identities that log in
// against the local identity store, and publishes the matching public key.
package tokenissuer

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/platform/auth/jwkset"
	"github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/tokens"
)

type Config struct {
	Issuer   string
	Audience string
	TTL      time.Duration
}

type Issuer struct {
	cfg   Config
	key   *rsa.PrivateKey
	kid   string
	clock clock.Clock
}

var _ tokens.Issuer = (*Issuer)(nil)

func New(key *rsa.PrivateKey, cfg Config, clk clock.Clock) (*Issuer, error) {
	if key == nil {
		return nil, errors.New("nil signing key")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	kid, err := keyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg, key: key, kid: kid, clock: clk}, nil
}

// LoadKey reads a PEM RSA private key (PKCS#1 or PKCS#8). An empty path
// generates an ephemeral 2048-bit key.
func LoadKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return rsa.GenerateKey(rand.Reader, 2048)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return key, nil
}

func (i *Issuer) Issue(_ context.Context, subject domain.IdentityID, role domain.Role) (tokens.AccessToken, error) {
	now := i.clock.Now()
	exp := now.Add(i.cfg.TTL).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":  i.cfg.Issuer,
		"aud":  i.cfg.Audience,
		"sub":  string(subject),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	})
	tok.Header["kid"] = i.kid
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return tokens.AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return tokens.AccessToken{Value: signed, ExpiresAt: exp}, nil
}

// PublicKey implements the verifier key source for locally issued tokens.
func (i *Issuer) PublicKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if kid != i.kid {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return &i.key.PublicKey, nil
}

// JWKS is the JSON Web Key Set served at /.well-known/jwks.json.
func (i *Issuer) JWKS() ([]byte, error) {
	return jwkset.Encode([]jwkset.Key{{Kid: i.kid, Public: &i.key.PublicKey}})
}

func (i *Issuer) Issuer() string   { return i.cfg.Issuer }
func (i *Issuer) Audience() string { return i.cfg.Audience }

// keyID is a short thumbprint of the DER-encoded public key.
func keyID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:12]), nil
}
