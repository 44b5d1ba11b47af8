package itest

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

var pdf = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

func TestDriverRegistry_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)

			// Rows are unique per run so suites can share a database.
			suffix := uuid.NewString()[:8]
			email := "driver-" + suffix + "@example.com"
			nationalID := "NID-" + suffix

			// Missing auth header => 401
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/api/drivers/me", "", nil)
				requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
			}

			// Register with an idempotency key, then replay it.
			reg := map[string]any{
				"email":        email,
				"password":     "s3cret-pass",
				"firstNames":   "Rosa",
				"lastNames":    "Huamán",
				"nationalId":   nationalID,
				"plate":        "P-" + suffix,
				"vehicleModel": "Sail",
				"vehicleMake":  "Chevrolet",
				"vehicleColor": "red",
			}
			var created struct {
				DriverId    string `json:"driverId"`
				LookupToken string `json:"lookupToken"`
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/register", "", reg, "Idempotency-Key", "itest-"+suffix)
				requireStatus(t, status, body, http.StatusCreated)
				created = mustUnmarshal[struct {
					DriverId    string `json:"driverId"`
					LookupToken string `json:"lookupToken"`
				}](t, body)
				if created.DriverId == "" || len(created.LookupToken) != 32 {
					t.Fatalf("unexpected registration body=%s", string(body))
				}

				status, replay, hdr := srv.doJSON(t, http.MethodPost, "/api/register", "", reg, "Idempotency-Key", "itest-"+suffix)
				requireStatus(t, status, replay, http.StatusCreated)
				if string(replay) != string(body) || hdr.Get("Idempotent-Replayed") != "true" {
					t.Fatalf("expected replayed response; got=%s want=%s", string(replay), string(body))
				}
			}

			// Same email without the key is a fresh attempt and fails.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/register", "", reg)
				requireErrorCode(t, status, body, http.StatusBadRequest, "EMAIL_TAKEN")
			}

			// Login and read own profile.
			var token string
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/login", "", map[string]any{"email": email, "password": "s3cret-pass"})
				requireStatus(t, status, body, http.StatusOK)
				token = mustUnmarshal[struct {
					AccessToken string `json:"accessToken"`
				}](t, body).AccessToken
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/api/drivers/me", token, nil)
				requireStatus(t, status, body, http.StatusOK)
				if !strings.Contains(string(body), nationalID) {
					t.Fatalf("expected own national id in profile; body=%s", string(body))
				}
			}

			// Bad type never reaches storage; good upload is downloadable.
			{
				status, body := srv.upload(t, token, created.DriverId, "selfie", "application/pdf", pdf)
				requireErrorCode(t, status, body, http.StatusBadRequest, "INVALID_DOCUMENT_TYPE")
			}
			var docURL string
			{
				status, body := srv.upload(t, token, created.DriverId, "insurance_policy", "application/pdf", pdf)
				requireStatus(t, status, body, http.StatusCreated)
				docURL = mustUnmarshal[struct {
					Url string `json:"url"`
				}](t, body).Url
				if !strings.HasPrefix(docURL, srv.baseURL+"/files?token=") {
					t.Fatalf("unexpected document url %q", docURL)
				}
			}
			{
				status, body, hdr := srv.doJSON(t, http.MethodGet, docURL, "", nil)
				requireStatus(t, status, body, http.StatusOK)
				if hdr.Get("Content-Type") != "application/pdf" || string(body) != string(pdf) {
					t.Fatalf("download mismatch content-type=%q len=%d", hdr.Get("Content-Type"), len(body))
				}
			}

			// Public profile by lookup token, plus a complaint.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/profiles/"+created.LookupToken+"/complaints", "", map[string]any{"text": "Overcharged the fare."})
				requireStatus(t, status, body, http.StatusCreated)
			}
			var first []byte
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/api/profiles/"+created.LookupToken, "", nil)
				requireStatus(t, status, body, http.StatusOK)
				if strings.Contains(string(body), nationalID) {
					t.Fatalf("public profile leaks national id; body=%s", string(body))
				}
				p := mustUnmarshal[struct {
					Driver struct {
						DriverId string `json:"driverId"`
					} `json:"driver"`
					Documents  []map[string]any `json:"documents"`
					Complaints []map[string]any `json:"complaints"`
				}](t, body)
				if p.Driver.DriverId != created.DriverId || len(p.Documents) != 1 || len(p.Complaints) != 1 {
					t.Fatalf("unexpected public profile body=%s", string(body))
				}
				first = body
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/api/profiles/"+created.LookupToken, "", nil)
				requireStatus(t, status, body, http.StatusOK)
				if string(body) != string(first) {
					t.Fatalf("profile changed between calls:\n%s\n%s", string(first), string(body))
				}
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/api/profiles/"+strings.Repeat("0", 32), "", nil)
				requireErrorCode(t, status, body, http.StatusNotFound, "NOT_FOUND")
			}

			// Signed URLs expire.
			srv.clk.Advance(10 * time.Minute)
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, docURL, "", nil)
				requireErrorCode(t, status, body, http.StatusForbidden, "FORBIDDEN")
			}

			// Admin search.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/api/admin/drivers?q="+nationalID, "", nil, "X-Admin-Token", "itest-admin")
				requireStatus(t, status, body, http.StatusOK)
				if !strings.Contains(string(body), created.DriverId) {
					t.Fatalf("search did not find driver; body=%s", string(body))
				}
			}
		})
	}
}
