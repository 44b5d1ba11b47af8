package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conductores/driver-registry-api/internal/app/complaints"
	"github.com/conductores/driver-registry-api/internal/app/documents"
	"github.com/conductores/driver-registry-api/internal/app/drivers"
	"github.com/conductores/driver-registry-api/internal/app/profiles"
	"github.com/conductores/driver-registry-api/internal/app/registration"
	"github.com/conductores/driver-registry-api/internal/app/session"
	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
)

// FileTokenVerifier resolves a signed download token to an object key.
type FileTokenVerifier interface {
	Verify(token string) (string, error)
}

// Deps are the collaborators of the HTTP adapter.
type Deps struct {
	Registration *registration.Service
	Session      *session.Service
	Documents    *documents.Service
	Complaints   *complaints.Service
	Profiles     *profiles.Service
	Drivers      *drivers.Service

	Blobs       blobstore.Store
	FileTokens  FileTokenVerifier
	Idempotency idempotency.Store
	Clock       clockport.Clock
	Log         *zap.Logger

	// MaxUploadBytes bounds a single uploaded file. Zero means documents.DefaultMaxBytes.
	MaxUploadBytes int64
}

// Server is the HTTP adapter. Handlers decode the request, delegate to one app
// service and encode its result.
type Server struct {
	Deps
}

func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = documents.DefaultMaxBytes
	}
	return &Server{Deps: d}
}

// multipartOverhead is the allowance for multipart framing on top of the file itself.
const multipartOverhead = 1 << 20

func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("driver registry api"))
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", map[string]any{"body": err.Error()})
		return
	}

	in := registration.Input{
		Email:         body.Email,
		Password:      body.Password,
		FirstNames:    body.FirstNames,
		LastNames:     body.LastNames,
		NationalID:    body.NationalId,
		LicenseNumber: body.LicenseNumber,
		Phone:         body.Phone,
		Address:       body.Address,
		Plate:         body.Plate,
		VehicleMake:   body.VehicleMake,
		VehicleModel:  body.VehicleModel,
		VehicleColor:  body.VehicleColor,
		PolicyNumber:  body.PolicyNumber,
	}

	s.idempotent(w, r, "/api/register", hashRegisterBody(body), func() (int, any, error) {
		reg, err := s.Registration.Register(r.Context(), in)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, RegisterResponse{
			DriverId:    string(reg.DriverID),
			LookupToken: string(reg.LookupToken),
		}, nil
	})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", map[string]any{"body": err.Error()})
		return
	}
	tok, err := s.Session.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: tok.Value,
		TokenType:   "Bearer",
		ExpiresAt:   tok.ExpiresAt,
	})
}

func (s *Server) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	prof, err := s.Drivers.Me(r.Context(), p.Subject)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, myProfileFromApp(prof))
}

func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	driverID := domain.DriverID(chi.URLParam(r, "driverId"))
	docType := domain.DocumentType(chi.URLParam(r, "type"))

	// Type is checked before the body is read.
	if err := documents.CheckType(docType); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}

	in, err := s.readUpload(w, r)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	in.DriverID = driverID
	in.Type = docType

	doc, err := s.Documents.Upload(r.Context(), p.Subject, in)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentFromDomain(doc))
}

func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	docs, err := s.Documents.List(r.Context(), p.Subject, domain.DriverID(chi.URLParam(r, "driverId")))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: documentsFromDomain(docs)})
}

func (s *Server) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.Profiles.Resolve(r.Context(), domain.LookupToken(chi.URLParam(r, "token")))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, publicProfileFromApp(prof))
}

func (s *Server) FileComplaint(w http.ResponseWriter, r *http.Request) {
	var body ComplaintRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", map[string]any{"body": err.Error()})
		return
	}
	c, err := s.Complaints.File(r.Context(), domain.LookupToken(chi.URLParam(r, "token")), body.Text)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, complaintFromDomain(c))
}

func (s *Server) SearchDrivers(w http.ResponseWriter, r *http.Request) {
	ds, err := s.Drivers.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	out := SearchDriversResponse{Drivers: make([]Driver, 0, len(ds))}
	for _, d := range ds {
		out.Drivers = append(out.Drivers, driverFromDomain(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// DownloadFile streams an object addressed by a signed token.
func (s *Server) DownloadFile(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "missing download token", nil)
		return
	}
	key, err := s.FileTokens.Verify(token)
	if err != nil {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "invalid or expired download link", nil)
		return
	}

	obj, err := s.Blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "NOT_FOUND", "file not found", nil)
			return
		}
		writeAppError(w, r, s.Log, fmt.Errorf("get object: %w", err))
		return
	}
	defer obj.Body.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		s.Log.Warn("stream file", zap.String("key", key), zap.Error(err))
	}
}

func (s *Server) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
