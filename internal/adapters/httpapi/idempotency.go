package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// idempotent runs handle at most once per Idempotency-Key and request body.
//
// Idempotency handling:
// - Replay if same actor+key+route+bodyHash
// - Reject if same actor+key+route with different bodyHash (409)
//
// Requests without the header run handle directly. Only successful responses
// pin the key and are stored; errors are never replayed.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, route, bodyHash string, handle func() (int, any, error)) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.Idempotency == nil {
		s.respond(w, r, handle)
		return
	}

	subject := ""
	if p, ok := PrincipalFromContext(ctx); ok {
		subject = string(p.Subject)
	}
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  subject,
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}

	meta, pinned, err := s.Idempotency.Get(ctx, metaFP)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	if pinned && string(meta.Body) != bodyHash {
		writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", "idempotency key reuse with different payload", nil)
		return
	}

	respFP := metaFP.ForBody(bodyHash)
	if rec, ok, err := s.Idempotency.Get(ctx, respFP); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	} else if ok && rec.Replayable() {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	// A failed request leaves the key free for a corrected retry.
	status, payload, err := handle()
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	now := s.now()
	if !pinned {
		if err := s.Idempotency.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   now,
		}); err != nil {
			s.Log.Warn("store idempotency fingerprint", zap.String("route", route), zap.Error(err))
		}
	}
	if err := s.Idempotency.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   now,
	}); err != nil {
		s.Log.Warn("store idempotent response", zap.String("route", route), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, handle func() (int, any, error)) {
	status, payload, err := handle()
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, status, payload)
}

func hashRegisterBody(b RegisterRequest) string {
	// Canonicalize fields that have normalization semantics before hashing.
	canon := b
	canon.Email = strings.ToLower(strings.TrimSpace(canon.Email))
	canon.FirstNames = domain.NormalizeHumanName(canon.FirstNames)
	canon.LastNames = domain.NormalizeHumanName(canon.LastNames)
	canon.NationalId = strings.TrimSpace(canon.NationalId)
	canon.Plate = domain.NormalizePlate(canon.Plate)

	raw, _ := json.Marshal(canon)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
