package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	fsblobstore "github.com/conductores/driver-registry-api/internal/adapters/filesystem/blobstore"
	"github.com/conductores/driver-registry-api/internal/adapters/httpapi"
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
	"github.com/conductores/driver-registry-api/internal/ports/out/complaintrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/documentrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
	idempotencyport "github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

type stores struct {
	identities identityrepo.Repository
	drivers    driverrepo.Repository
	documents  documentrepo.Repository
	complaints complaintrepo.Repository
	idem       idempotencyport.Store
}

// openBackend maps a backend to its stores. Backends needing containers are
// registered from files behind the integration build tag.
var openBackend = map[backend]func(t *testing.T) stores{
	backendMemory: func(*testing.T) stores {
		return stores{
			identities: memidentityrepo.NewRepo(),
			drivers:    memdriverrepo.NewRepo(),
			documents:  memdocumentrepo.NewRepo(),
			complaints: memcomplaintrepo.NewRepo(),
			idem:       memidempotency.NewStore(),
		}
	},
}

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	open, ok := openBackend[b]
	if !ok {
		t.Skipf("backend %s not compiled in (build with -tags integration)", b)
	}
	st := open(t)

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	clk := memclock.NewManualClock(time.Now().UTC().Truncate(time.Second))
	log := zap.NewNop()
	m := metrics.New()

	blobs, err := fsblobstore.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	key, err := tokenissuer.LoadKey("")
	if err != nil {
		t.Fatalf("signing key: %v", err)
	}
	issuer, err := tokenissuer.New(key, tokenissuer.Config{Issuer: "itest-issuer", Audience: "itest", TTL: time.Hour}, clk)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	signer, err := urlsign.NewSigner("itest-url-signing-secret", srv.URL, clk)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	hasher := password.NewHasher(bcrypt.MinCost)
	docSvc := documents.NewService(st.drivers, st.documents, blobs, signer, clk, log, m)
	complaintSvc := complaints.NewService(st.drivers, st.complaints, clk, log, m)
	api := httpapi.NewServer(httpapi.Deps{
		Registration: registration.NewService(st.identities, st.drivers, hasher, clk, log, m),
		Session:      session.NewService(st.identities, hasher, issuer, log),
		Documents:    docSvc,
		Complaints:   complaintSvc,
		Profiles:     profiles.NewService(st.drivers, docSvc, complaintSvc, m),
		Drivers:      drivers.NewService(st.drivers, docSvc, complaintSvc),
		Blobs:        blobs,
		FileTokens:   signer,
		Idempotency:  st.idem,
		Clock:        clk,
		Log:          log,
	})
	verifier := jwtverifier.NewWithKeys(issuer.Issuer(), issuer.Audience(), 0, issuer, clk)
	handler = httpapi.NewRouter(api, httpapi.RouterConfig{
		Auth:       httpapi.NewAuthMiddleware(verifier),
		AdminToken: "itest-admin",
		Metrics:    m,
		Log:        log,
	})

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clk:     clk,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, []byte, http.Header) {
	t.Helper()
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return s.send(t, req)
}

func (s *testServer) upload(t *testing.T, token, driverID, docType, contentType string, content []byte) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(content)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url("/api/documents/"+driverID+"/"+docType), &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	status, body, _ := s.send(t, req)
	return status, body
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestId string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
	if got.Error.RequestId == "" {
		t.Fatalf("expected requestId in error envelope; body=%s", string(body))
	}
}
