package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/platform/auth/tokenissuer"
	platformclock "github.com/conductores/driver-registry-api/internal/platform/clock"
	"github.com/conductores/driver-registry-api/internal/platform/logging"
)

// Tiny dev-only JWT issuer + JWKS server.
//
// This is NOT a full OIDC provider. It stands in for an external issuer when the
// api runs with AUTH_MODE=jwks locally (JWT_JWKS_URL=http://devjwt:5556/.well-known/jwks.json).

func main() {
	port := getenv("PORT", "5556")
	issuerName := getenv("ISSUER", "http://devjwt:5556")
	audience := getenv("AUDIENCE", "driver-registry-api")
	ttl := getenvDuration("TTL", 30*time.Minute)

	log, err := logging.New(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "console"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	key, err := tokenissuer.LoadKey(os.Getenv("SIGNING_KEY_FILE"))
	if err != nil {
		log.Fatal("load key", zap.Error(err))
	}
	issuer, err := tokenissuer.New(key, tokenissuer.Config{Issuer: issuerName, Audience: audience, TTL: ttl}, platformclock.NewSystemClock())
	if err != nil {
		log.Fatal("issuer", zap.Error(err))
	}
	jwksJSON, err := issuer.JWKS()
	if err != nil {
		log.Fatal("marshal jwks", zap.Error(err))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Common JWKS path used by many providers.
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jwksJSON)
	})

	// Mint a JWT for an existing identity:
	//   GET /token?sub=<identity id>&role=driver
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		role := domain.Role(getQuery(r, "role", string(domain.RoleDriver)))

		tok, err := issuer.Issue(r.Context(), domain.IdentityID(sub), role)
		if err != nil {
			log.Error("mint token", zap.Error(err))
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": tok.Value,
			"sub":   sub,
			"role":  role,
			"iss":   issuerName,
			"aud":   audience,
			"exp":   tok.ExpiresAt.Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("devjwt listening",
		zap.String("addr", srv.Addr),
		zap.String("iss", issuerName),
		zap.String("aud", audience),
		zap.Duration("ttl", ttl),
	)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
}

func getQuery(r *http.Request, k, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(k)); v != "" {
		return v
	}
	return def
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
