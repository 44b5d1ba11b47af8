package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	fsblobstore "github.com/conductores/driver-registry-api/internal/adapters/filesystem/blobstore"
	"github.com/conductores/driver-registry-api/internal/adapters/httpapi"
	memblobstore "github.com/conductores/driver-registry-api/internal/adapters/memory/blobstore"
	memcomplaintrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/complaintrepo"
	memdocumentrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/documentrepo"
	memdriverrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/driverrepo"
	memidempotency "github.com/conductores/driver-registry-api/internal/adapters/memory/idempotency"
	memidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/identityrepo"
	postgres "github.com/conductores/driver-registry-api/internal/adapters/postgres"
	pgcomplaintrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/complaintrepo"
	pgdocumentrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/documentrepo"
	pgdriverrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/driverrepo"
	pgidempotency "github.com/conductores/driver-registry-api/internal/adapters/postgres/idempotency"
	pgidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/identityrepo"
	redisidempotency "github.com/conductores/driver-registry-api/internal/adapters/redis/idempotency"
	"github.com/conductores/driver-registry-api/internal/app/complaints"
	"github.com/conductores/driver-registry-api/internal/app/documents"
	"github.com/conductores/driver-registry-api/internal/app/drivers"
	"github.com/conductores/driver-registry-api/internal/app/profiles"
	"github.com/conductores/driver-registry-api/internal/app/registration"
	"github.com/conductores/driver-registry-api/internal/app/session"
	"github.com/conductores/driver-registry-api/internal/platform/auth/jwtverifier"
	"github.com/conductores/driver-registry-api/internal/platform/auth/password"
	"github.com/conductores/driver-registry-api/internal/platform/auth/tokenissuer"
	platformclock "github.com/conductores/driver-registry-api/internal/platform/clock"
	"github.com/conductores/driver-registry-api/internal/platform/config"
	"github.com/conductores/driver-registry-api/internal/platform/logging"
	"github.com/conductores/driver-registry-api/internal/platform/metrics"
	platformredis "github.com/conductores/driver-registry-api/internal/platform/redis"
	"github.com/conductores/driver-registry-api/internal/platform/urlsign"
	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
	"github.com/conductores/driver-registry-api/internal/ports/out/complaintrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/documentrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
	idempotencyport "github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

type repos struct {
	identities identityrepo.Repository
	drivers    driverrepo.Repository
	documents  documentrepo.Repository
	complaints complaintrepo.Repository
	idem       idempotencyport.Store
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := platformclock.NewSystemClock()
	m := metrics.New().WithRuntimeCollectors()

	var (
		st      repos
		cleanup []func()
	)
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
		cleanup = append(cleanup, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		st = repos{
			identities: pgidentityrepo.NewRepo(pool),
			drivers:    pgdriverrepo.NewRepo(pool),
			documents:  pgdocumentrepo.NewRepo(pool),
			complaints: pgcomplaintrepo.NewRepo(pool),
			idem:       pgidempotency.NewStore(pool, cfg.IdempotencyTTL, clk),
		}
	default:
		st = repos{
			identities: memidentityrepo.NewRepo(),
			drivers:    memdriverrepo.NewRepo(),
			documents:  memdocumentrepo.NewRepo(),
			complaints: memcomplaintrepo.NewRepo(),
			idem:       memidempotency.NewStoreWithOptions(cfg.IdempotencyTTL, clk),
		}
	}

	if cfg.IdempotencyBackend == config.IdempotencyRedis {
		rc, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		cleanup = append(cleanup, func() { _ = rc.Close() })
		st.idem = redisidempotency.NewStore(rc, cfg.IdempotencyTTL)
	}

	var blobs blobstore.Store
	switch cfg.BlobBackend {
	case config.BlobFilesystem:
		fs, err := fsblobstore.NewStore(cfg.BlobDir)
		if err != nil {
			return fmt.Errorf("blob store: %w", err)
		}
		blobs = fs
	default:
		blobs = memblobstore.NewStore()
	}

	key, err := tokenissuer.LoadKey(cfg.Token.SigningKeyFile)
	if err != nil {
		return fmt.Errorf("token signing key: %w", err)
	}
	issuer, err := tokenissuer.New(key, tokenissuer.Config{
		Issuer:   cfg.Token.Issuer,
		Audience: cfg.Token.Audience,
		TTL:      cfg.Token.TTL,
	}, clk)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	jwks, err := issuer.JWKS()
	if err != nil {
		return fmt.Errorf("jwks: %w", err)
	}

	// Auth configuration:
	// - local: verify tokens minted by /api/login
	// - jwks: verify tokens from an external issuer (JWT_* env vars)
	// - dev: bypass verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeJWKS:
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(cfg.JWT))
	case config.AuthModeDev:
		log.Warn("dev auth mode: bearer tokens are not verified")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(jwtverifier.NewWithKeys(issuer.Issuer(), issuer.Audience(), 30*time.Second, issuer, clk))
	}

	signer, err := urlsign.NewSigner(cfg.URLSigningSecret, cfg.PublicBaseURL, clk)
	if err != nil {
		return fmt.Errorf("url signer: %w", err)
	}

	hasher := password.NewHasher(bcrypt.DefaultCost)
	docSvc := documents.NewService(st.drivers, st.documents, blobs, signer, clk, log, m)
	docSvc.MaxBytes = cfg.MaxUploadBytes
	docSvc.URLTTL = cfg.SignedURLTTL
	complaintSvc := complaints.NewService(st.drivers, st.complaints, clk, log, m)

	api := httpapi.NewServer(httpapi.Deps{
		Registration:   registration.NewService(st.identities, st.drivers, hasher, clk, log, m),
		Session:        session.NewService(st.identities, hasher, issuer, log),
		Documents:      docSvc,
		Complaints:     complaintSvc,
		Profiles:       profiles.NewService(st.drivers, docSvc, complaintSvc, m),
		Drivers:        drivers.NewService(st.drivers, docSvc, complaintSvc),
		Blobs:          blobs,
		FileTokens:     signer,
		Idempotency:    st.idem,
		Clock:          clk,
		Log:            log,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	handler := httpapi.NewRouter(api, httpapi.RouterConfig{
		Auth:           authMW,
		AdminToken:     cfg.AdminToken,
		Metrics:        m,
		MetricsHandler: m.Handler(),
		JWKS:           jwks,
		Log:            log.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("auth_mode", cfg.AuthMode),
			zap.String("storage", cfg.StorageBackend),
			zap.String("blobs", cfg.BlobBackend),
			zap.String("idempotency", cfg.IdempotencyBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
