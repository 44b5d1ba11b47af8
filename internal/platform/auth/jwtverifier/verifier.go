package jwtverifier

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conductores/driver-registry-api/internal/platform/clock"
	"github.com/conductores/driver-registry-api/internal/platform/config"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

// KeySource resolves RS256 verification keys by kid.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Principal is the authenticated caller carried by a verified token.
type Principal struct {
	Subject string
	// Role is empty when the issuer does not emit a role claim.
	Role string
}

type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	parser *jwt.Parser
	keys   KeySource
}

// New verifies tokens from an external issuer, fetching keys from cfg.JWKSURL.
func New(cfg config.JWTConfig) *Verifier {
	return NewWithOptions(cfg, nil, nil)
}

func NewWithOptions(cfg config.JWTConfig, httpClient *http.Client, clk clockport.Clock) *Verifier {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	keys := NewRemoteKeySet(cfg, httpClient, clk)
	return NewWithKeys(cfg.Issuer, cfg.Audience, cfg.ClockSkew, keys, clk)
}

// NewWithKeys verifies tokens signed by keys from an arbitrary source, such as
// the local token issuer.
func NewWithKeys(issuer, audience string, skew time.Duration, keys KeySource, clk clockport.Clock) *Verifier {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clk.Now),
	}
	if skew > 0 {
		opts = append(opts, jwt.WithLeeway(skew))
	}
	return &Verifier{parser: jwt.NewParser(opts...), keys: keys}
}

// Verify checks an RS256 token (signature, iss, aud, exp, nbf) and returns its
// subject and role.
func (v *Verifier) Verify(ctx context.Context, token string) (Principal, error) {
	var c claims
	_, err := v.parser.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.keys.PublicKey(ctx, kid)
	})
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	if c.Subject == "" {
		return Principal{}, ErrUnauthorized
	}
	return Principal{Subject: c.Subject, Role: c.Role}, nil
}
