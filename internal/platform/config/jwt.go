package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig configures verification of externally issued tokens against a JWKS
// endpoint (AUTH_MODE=jwks).
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	issuer := os.Getenv("JWT_ISSUER")
	audience := os.Getenv("JWT_AUDIENCE")
	jwksURL := os.Getenv("JWT_JWKS_URL")
	if issuer == "" || audience == "" || jwksURL == "" {
		return JWTConfig{}, fmt.Errorf("AUTH_MODE=jwks requires JWT_ISSUER, JWT_AUDIENCE and JWT_JWKS_URL")
	}

	cfg := JWTConfig{
		Issuer:                 issuer,
		Audience:               audience,
		JWKSURL:                jwksURL,
		ClockSkew:              30 * time.Second,
		JWKSRefreshInterval:    5 * time.Minute,
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_CLOCK_SKEW", &cfg.ClockSkew},
		{"JWT_JWKS_REFRESH_INTERVAL", &cfg.JWKSRefreshInterval},
		{"JWT_JWKS_MIN_REFRESH_INTERVAL", &cfg.JWKSMinRefreshInterval},
		{"JWT_HTTP_TIMEOUT", &cfg.HTTPTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return JWTConfig{}, fmt.Errorf("%s must be a duration (e.g. 30s): %w", d.key, err)
		}
		*d.dst = parsed
	}

	return cfg, nil
}
