package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "AUTH_MODE", "STORAGE_BACKEND", "DATABASE_URL", "BLOB_BACKEND", "BLOB_DIR",
		"IDEMPOTENCY_BACKEND", "IDEMPOTENCY_TTL", "REDIS_URL", "REDIS_POOL_SIZE", "ADMIN_TOKEN", "DEV_SUBJECT",
		"TOKEN_SIGNING_KEY_FILE", "TOKEN_ISSUER", "TOKEN_AUDIENCE", "TOKEN_TTL",
		"URL_SIGNING_SECRET", "PUBLIC_BASE_URL", "SIGNED_URL_TTL", "MAX_UPLOAD_BYTES",
		"LOG_LEVEL", "LOG_FORMAT",
		"JWT_ISSUER", "JWT_AUDIENCE", "JWT_JWKS_URL", "JWT_CLOCK_SKEW",
		"JWT_JWKS_REFRESH_INTERVAL", "JWT_JWKS_MIN_REFRESH_INTERVAL", "JWT_HTTP_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, AuthModeLocal, cfg.AuthMode)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, BlobMemory, cfg.BlobBackend)
	assert.Equal(t, IdempotencyStorage, cfg.IdempotencyBackend)
	assert.Equal(t, 300*time.Second, cfg.SignedURLTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, time.Hour, cfg.Token.TTL)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.NotEmpty(t, cfg.URLSigningSecret)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/registry")
	t.Setenv("SIGNED_URL_TTL", "60s")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("PUBLIC_BASE_URL", "https://registry.example.com/")
	t.Setenv("IDEMPOTENCY_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("DEV_SUBJECT", "identity-1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageBackend)
	assert.Equal(t, time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, "https://registry.example.com", cfg.PublicBaseURL)
	assert.Equal(t, IdempotencyRedis, cfg.IdempotencyBackend)
	assert.Equal(t, 32, cfg.Redis.PoolSize)
	assert.Equal(t, "identity-1", cfg.DevSubject)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown auth mode", map[string]string{"AUTH_MODE": "basic"}},
		{"postgres without dsn", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"unknown blob backend", map[string]string{"BLOB_BACKEND": "s3"}},
		{"redis without url", map[string]string{"IDEMPOTENCY_BACKEND": "redis"}},
		{"bad ttl", map[string]string{"SIGNED_URL_TTL": "soon"}},
		{"negative ttl", map[string]string{"TOKEN_TTL": "-1m"}},
		{"bad upload size", map[string]string{"MAX_UPLOAD_BYTES": "big"}},
		{"bad redis pool", map[string]string{"REDIS_POOL_SIZE": "0"}},
		{"jwks without vars", map[string]string{"AUTH_MODE": "jwks"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadJWTConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_ISSUER", "https://issuer.example.com/")
	t.Setenv("JWT_AUDIENCE", "registry")
	t.Setenv("JWT_JWKS_URL", "https://issuer.example.com/.well-known/jwks.json")
	t.Setenv("JWT_CLOCK_SKEW", "5s")

	cfg, err := LoadJWTConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.ClockSkew)
	assert.Equal(t, 5*time.Minute, cfg.JWKSRefreshInterval)

	t.Setenv("JWT_JWKS_REFRESH_INTERVAL", "often")
	_, err = LoadJWTConfigFromEnv()
	assert.Error(t, err)
}
