package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig carries the cross-cutting pieces of the router.
type RouterConfig struct {
	// Auth guards the driver endpoints (bearer or dev shim).
	Auth func(http.Handler) http.Handler
	// AdminToken guards /api/admin; empty disables it.
	AdminToken string

	Metrics        HTTPMetrics
	MetricsHandler http.Handler
	// JWKS is served at /.well-known/jwks.json when set.
	JWKS []byte

	Log *zap.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	auth := cfg.Auth
	if auth == nil {
		auth = denyAll
	}

	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log, cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/", s.Root)
	// Health endpoint is used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	if len(cfg.JWKS) > 0 {
		jwks := cfg.JWKS
		r.Get("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "public, max-age=300")
			_, _ = w.Write(jwks)
		})
	}

	r.Get("/files", s.DownloadFile)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.Register)
		r.Post("/login", s.Login)

		r.Get("/profiles/{token}", s.GetPublicProfile)
		r.Post("/profiles/{token}/complaints", s.FileComplaint)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/drivers/me", s.GetMyProfile)
			r.Post("/documents/{driverId}/{type}", s.UploadDocument)
			r.Get("/documents/{driverId}", s.ListDocuments)
		})

		r.Group(func(r chi.Router) {
			r.Use(NewAdminMiddleware(cfg.AdminToken))
			r.Get("/admin/drivers", s.SearchDrivers)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication is not configured", nil)
	})
}
