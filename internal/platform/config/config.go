package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	AuthModeLocal = "local"
	AuthModeJWKS  = "jwks"
	AuthModeDev   = "dev"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	BlobMemory     = "memory"
	BlobFilesystem = "filesystem"

	IdempotencyStorage = "storage"
	IdempotencyRedis   = "redis"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port string

	AuthMode string
	// JWT is populated only when AuthMode is jwks.
	JWT JWTConfig
	// DevSubject is the fallback identity id when AuthMode is dev.
	DevSubject string

	StorageBackend string
	DatabaseURL    string

	BlobBackend string
	BlobDir     string

	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	Redis              RedisConfig

	AdminToken string

	Token TokenConfig

	URLSigningSecret string
	PublicBaseURL    string
	SignedURLTTL     time.Duration

	MaxUploadBytes int64

	LogLevel  string
	LogFormat string
}

// TokenConfig configures the local access-token issuer.
type TokenConfig struct {
	// SigningKeyFile is a PEM RSA private key. Empty means an ephemeral key is
	// generated at startup, which invalidates tokens on restart.
	SigningKeyFile string
	Issuer         string
	Audience       string
	TTL            time.Duration
}

// RedisConfig configures the redis client used by the idempotency store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoadFromEnv reads the environment, applying defaults for anything unset.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Port:               envOr("PORT", "8080"),
		AuthMode:           strings.ToLower(envOr("AUTH_MODE", AuthModeLocal)),
		DevSubject:         os.Getenv("DEV_SUBJECT"),
		StorageBackend:     strings.ToLower(envOr("STORAGE_BACKEND", StorageMemory)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		BlobBackend:        strings.ToLower(envOr("BLOB_BACKEND", BlobMemory)),
		BlobDir:            envOr("BLOB_DIR", "./data/blobs"),
		IdempotencyBackend: strings.ToLower(envOr("IDEMPOTENCY_BACKEND", IdempotencyStorage)),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		Token: TokenConfig{
			SigningKeyFile: os.Getenv("TOKEN_SIGNING_KEY_FILE"),
			Issuer:         envOr("TOKEN_ISSUER", "driver-registry-api"),
			Audience:       envOr("TOKEN_AUDIENCE", "driver-registry-api"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		URLSigningSecret: os.Getenv("URL_SIGNING_SECRET"),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(envOr("LOG_FORMAT", "json")),
	}

	var err error
	if cfg.Token.TTL, err = durationEnv("TOKEN_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SignedURLTTL, err = durationEnv("SIGNED_URL_TTL", 300*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadBytes, err = int64Env("MAX_UPLOAD_BYTES", 5<<20); err != nil {
		return Config{}, err
	}
	poolSize, err := int64Env("REDIS_POOL_SIZE", int64(cfg.Redis.PoolSize))
	if err != nil {
		return Config{}, err
	}
	cfg.Redis.PoolSize = int(poolSize)
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}

	switch cfg.AuthMode {
	case AuthModeLocal, AuthModeDev:
	case AuthModeJWKS:
		if cfg.JWT, err = LoadJWTConfigFromEnv(); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be one of local|jwks|dev, got %q", cfg.AuthMode)
	}

	switch cfg.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be memory|postgres, got %q", cfg.StorageBackend)
	}

	switch cfg.BlobBackend {
	case BlobMemory, BlobFilesystem:
	default:
		return Config{}, fmt.Errorf("BLOB_BACKEND must be memory|filesystem, got %q", cfg.BlobBackend)
	}

	switch cfg.IdempotencyBackend {
	case IdempotencyStorage:
	case IdempotencyRedis:
		if cfg.Redis.URL == "" {
			return Config{}, fmt.Errorf("REDIS_URL is required when IDEMPOTENCY_BACKEND=redis")
		}
	default:
		return Config{}, fmt.Errorf("IDEMPOTENCY_BACKEND must be storage|redis, got %q", cfg.IdempotencyBackend)
	}

	if cfg.URLSigningSecret == "" {
		// Dev fallback. Set URL_SIGNING_SECRET in any shared deployment.
		cfg.URLSigningSecret = "dev-url-signing-secret-change-me"
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 300s): %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func int64Env(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}
