package httpapi_test

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/conductores/driver-registry-api/internal/adapters/httpapi"
	memblobstore "github.com/conductores/driver-registry-api/internal/adapters/memory/blobstore"
	memclock "github.com/conductores/driver-registry-api/internal/adapters/memory/clock"
	memcomplaintrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/complaintrepo"
	memdocumentrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/documentrepo"
	memdriverrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/driverrepo"
	memidempotency "github.com/conductores/driver-registry-api/internal/adapters/memory/idempotency"
	memidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/identityrepo"
	"github.com/conductores/driver-registry-api/internal/app/complaints"
	"github.com/conductores/driver-registry-api/internal/app/documents"
	"github.com/conductores/driver-registry-api/internal/app/drivers"
	"github.com/conductores/driver-registry-api/internal/app/profiles"
	"github.com/conductores/driver-registry-api/internal/app/registration"
	"github.com/conductores/driver-registry-api/internal/app/session"
	"github.com/conductores/driver-registry-api/internal/platform/auth/jwtverifier"
	"github.com/conductores/driver-registry-api/internal/platform/auth/password"
	"github.com/conductores/driver-registry-api/internal/platform/auth/tokenissuer"
	"github.com/conductores/driver-registry-api/internal/platform/metrics"
	"github.com/conductores/driver-registry-api/internal/platform/urlsign"
)

const (
	testAdminToken = "admin-secret"
	testBaseURL    = "http://files.test"
	testMaxUpload  = 4096
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
	keyErr  error
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() { testKey, keyErr = tokenissuer.LoadKey("") })
	require.NoError(t, keyErr)
	return testKey
}

type fixture struct {
	clk        *memclock.ManualClock
	identities *memidentityrepo.Repo
	drivers    *memdriverrepo.Repo
	blobs      *memblobstore.Store
	metrics    *metrics.Metrics
	handler    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	m := metrics.New()

	identities := memidentityrepo.NewRepo()
	driverRepo := memdriverrepo.NewRepo()
	docRepo := memdocumentrepo.NewRepo()
	complaintRepo := memcomplaintrepo.NewRepo()
	blobs := memblobstore.NewStore()

	issuer, err := tokenissuer.New(signingKey(t), tokenissuer.Config{
		Issuer:   "registry-test",
		Audience: "registry-api",
		TTL:      time.Hour,
	}, clk)
	require.NoError(t, err)
	verifier := jwtverifier.NewWithKeys(issuer.Issuer(), issuer.Audience(), 0, issuer, clk)

	signer, err := urlsign.NewSigner("test-url-signing-secret", testBaseURL, clk)
	require.NoError(t, err)

	hasher := password.NewHasher(bcrypt.MinCost)
	docSvc := documents.NewService(driverRepo, docRepo, blobs, signer, clk, log, m)
	docSvc.MaxBytes = testMaxUpload
	complaintSvc := complaints.NewService(driverRepo, complaintRepo, clk, log, m)

	srv := httpapi.NewServer(httpapi.Deps{
		Registration:   registration.NewService(identities, driverRepo, hasher, clk, log, m),
		Session:        session.NewService(identities, hasher, issuer, log),
		Documents:      docSvc,
		Complaints:     complaintSvc,
		Profiles:       profiles.NewService(driverRepo, docSvc, complaintSvc, m),
		Drivers:        drivers.NewService(driverRepo, docSvc, complaintSvc),
		Blobs:          blobs,
		FileTokens:     signer,
		Idempotency:    memidempotency.NewStoreWithOptions(24*time.Hour, clk),
		Clock:          clk,
		Log:            log,
		MaxUploadBytes: testMaxUpload,
	})

	jwks, err := issuer.JWKS()
	require.NoError(t, err)

	return &fixture{
		clk:        clk,
		identities: identities,
		drivers:    driverRepo,
		blobs:      blobs,
		metrics:    m,
		handler: httpapi.NewRouter(srv, httpapi.RouterConfig{
			Auth:           httpapi.NewAuthMiddleware(verifier),
			AdminToken:     testAdminToken,
			Metrics:        m,
			MetricsHandler: m.Handler(),
			JWKS:           jwks,
			Log:            log,
		}),
	}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) doJSON(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return f.do(req)
}

func registerBody(email, nationalID, plate string) map[string]any {
	return map[string]any{
		"email":        email,
		"password":     "correct horse",
		"firstNames":   "Ana María",
		"lastNames":    "Quispe Rojas",
		"nationalId":   nationalID,
		"plate":        plate,
		"vehicleMake":  "Toyota",
		"vehicleModel": "Corolla",
		"vehicleColor": "white",
		"policyNumber": "POL-1",
		"phone":        "+51 999 000 111",
	}
}

func (f *fixture) register(t *testing.T, email, nationalID, plate string) httpapi.RegisterResponse {
	t.Helper()
	rr := f.doJSON(t, http.MethodPost, "/api/register", registerBody(email, nationalID, plate), nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[httpapi.RegisterResponse](t, rr)
}

func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()
	rr := f.doJSON(t, http.MethodPost, "/api/login", map[string]any{"email": email, "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[httpapi.LoginResponse](t, rr).AccessToken
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func (f *fixture) upload(t *testing.T, token, driverID, docType, partContentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="doc.bin"`)
	h.Set("Content-Type", partContentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/"+driverID+"/"+docType, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return f.do(req)
}

// filePath turns a signed download URL into a request path on the test router.
func filePath(t *testing.T, signed string) string {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)
	return u.Path + "?" + u.RawQuery
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[httpapi.ErrorResponse](t, rr).Error.Code
}

var (
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
)
