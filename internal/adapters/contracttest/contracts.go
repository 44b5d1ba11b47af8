package contracttest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
	"github.com/conductores/driver-registry-api/internal/ports/out/complaintrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/documentrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
	idempotencyport "github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

type CleanupFunc = func()

// Repos bundles the relational repositories. Driver, document and complaint
// contracts need coordinated seeding because the SQL adapters enforce foreign keys.
type Repos struct {
	Identities identityrepo.Repository
	Drivers    driverrepo.Repository
	Documents  documentrepo.Repository
	Complaints complaintrepo.Repository
}

type ReposFactory func(t *testing.T) (Repos, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type BlobStoreFactory func(t *testing.T) (blobstore.Store, CleanupFunc)

func open(t *testing.T, newRepos ReposFactory) Repos {
	t.Helper()
	repos, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return repos
}

// unique returns a short random suffix so suites can share a database.
func unique() string {
	return uuid.NewString()[:8]
}

func seedIdentity(t *testing.T, repo identityrepo.Repository) identityrepo.Identity {
	t.Helper()
	id := identityrepo.Identity{
		ID:           domain.IdentityID(uuid.NewString()),
		Email:        "driver-" + unique() + "@example.com",
		PasswordHash: []byte("$2a$10$hash"),
		Role:         domain.RoleDriver,
		CreatedAt:    time.Unix(1000, 0).UTC(),
	}
	if err := repo.Create(context.Background(), id); err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	return id
}

func newDriver(identityID domain.IdentityID, first, last string) domain.Driver {
	return domain.Driver{
		ID:            domain.DriverID(uuid.NewString()),
		IdentityID:    identityID,
		FirstNames:    first,
		LastNames:     last,
		NationalID:    "NID-" + unique(),
		LicenseNumber: "LIC-1",
		Phone:         "0990000000",
		Address:       "Av. Central 1",
		Vehicle: domain.Vehicle{
			Plate:        "P" + unique(),
			Make:         "Toyota",
			Model:        "Yaris",
			Color:        "Blanco",
			PolicyNumber: "POL-1",
		},
		LookupToken: domain.LookupToken(uuid.NewString()),
		CreatedAt:   time.Unix(1000, 0).UTC(),
	}
}

func SeedDriver(t *testing.T, repos Repos, first, last string) domain.Driver {
	t.Helper()
	ident := seedIdentity(t, repos.Identities)
	d := newDriver(ident.ID, first, last)
	if err := repos.Drivers.Create(context.Background(), d); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	return d
}

func RunIdentityRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repo := open(t, newRepos).Identities

	a := seedIdentity(t, repo)
	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != a.Email || got.Role != domain.RoleDriver || !bytes.Equal(got.PasswordHash, a.PasswordHash) {
		t.Fatalf("GetByID=%+v, want %+v", got, a)
	}

	// Email lookups and uniqueness are case-insensitive.
	upper := bytes.ToUpper([]byte(a.Email))
	if _, err := repo.GetByEmail(ctx, string(upper)); err != nil {
		t.Fatalf("GetByEmail(upper): %v", err)
	}
	dup := a
	dup.ID = domain.IdentityID(uuid.NewString())
	dup.Email = string(upper)
	if err := repo.Create(ctx, dup); !errors.Is(err, identityrepo.ErrEmailTaken) {
		t.Fatalf("Create(dup email) err=%v, want %v", err, identityrepo.ErrEmailTaken)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, a.ID); !errors.Is(err, identityrepo.ErrNotFound) {
		t.Fatalf("GetByID after delete err=%v, want %v", err, identityrepo.ErrNotFound)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, identityrepo.ErrNotFound) {
		t.Fatalf("Delete twice err=%v, want %v", err, identityrepo.ErrNotFound)
	}

	// A deleted identity frees its email.
	again := a
	again.ID = domain.IdentityID(uuid.NewString())
	if err := repo.Create(ctx, again); err != nil {
		t.Fatalf("Create after delete: %v", err)
	}
}

func RunDriverRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := open(t, newRepos)
	repo := repos.Drivers

	tag := unique()
	a := SeedDriver(t, repos, "Ana "+tag, "Zambrano "+tag)

	byID, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.IdentityID != a.IdentityID || byID.Vehicle != a.Vehicle || byID.LookupToken != a.LookupToken {
		t.Fatalf("GetByID=%+v, want %+v", byID, a)
	}
	if got, err := repo.GetByIdentity(ctx, a.IdentityID); err != nil || got.ID != a.ID {
		t.Fatalf("GetByIdentity=%v err=%v", got.ID, err)
	}
	if got, err := repo.GetByLookupToken(ctx, a.LookupToken); err != nil || got.ID != a.ID {
		t.Fatalf("GetByLookupToken=%v err=%v", got.ID, err)
	}
	if _, err := repo.GetByLookupToken(ctx, "missing-token"); !errors.Is(err, driverrepo.ErrNotFound) {
		t.Fatalf("GetByLookupToken(missing) err=%v, want %v", err, driverrepo.ErrNotFound)
	}
	if _, err := repo.GetByID(ctx, domain.DriverID(uuid.NewString())); !errors.Is(err, driverrepo.ErrNotFound) {
		t.Fatalf("GetByID(missing) err=%v, want %v", err, driverrepo.ErrNotFound)
	}

	// One profile per identity.
	second := newDriver(a.IdentityID, "Other", "Person")
	if err := repo.Create(ctx, second); !errors.Is(err, driverrepo.ErrIdentityAlreadyBound) {
		t.Fatalf("Create(same identity) err=%v, want %v", err, driverrepo.ErrIdentityAlreadyBound)
	}

	// National ID uniqueness.
	other := seedIdentity(t, repos.Identities)
	sameNID := newDriver(other.ID, "Other", "Person")
	sameNID.NationalID = a.NationalID
	if err := repo.Create(ctx, sameNID); !errors.Is(err, driverrepo.ErrDuplicateNationalID) {
		t.Fatalf("Create(same national id) err=%v, want %v", err, driverrepo.ErrDuplicateNationalID)
	}

	// Lookup token uniqueness.
	sameToken := newDriver(other.ID, "Other", "Person")
	sameToken.LookupToken = a.LookupToken
	if err := repo.Create(ctx, sameToken); !errors.Is(err, driverrepo.ErrDuplicateLookupToken) {
		t.Fatalf("Create(same token) err=%v, want %v", err, driverrepo.ErrDuplicateLookupToken)
	}

	// Search: AND across tokens, case-insensitive, ordered by last then first names.
	b := SeedDriver(t, repos, "Bruno "+tag, "Andrade "+tag)
	SeedDriver(t, repos, "Carla", "Zambrano")
	res, err := repo.Search(ctx, tag, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 || res[0].ID != b.ID || res[1].ID != a.ID {
		t.Fatalf("Search(tag)=%v, want [%s %s]", driverIDs(res), b.ID, a.ID)
	}
	res, err = repo.Search(ctx, "ZAMBRANO "+tag+" ana", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ID != a.ID {
		t.Fatalf("Search(multi token)=%v, want [%s]", driverIDs(res), a.ID)
	}
	res, err = repo.Search(ctx, a.Vehicle.Plate, 10)
	if err != nil || len(res) != 1 || res[0].ID != a.ID {
		t.Fatalf("Search(plate)=%v err=%v", driverIDs(res), err)
	}
	dashed := strings.ToLower(a.Vehicle.Plate[:4]) + "-" + a.Vehicle.Plate[4:]
	res, err = repo.Search(ctx, dashed, 10)
	if err != nil || len(res) != 1 || res[0].ID != a.ID {
		t.Fatalf("Search(%q)=%v err=%v, want [%s]", dashed, driverIDs(res), err, a.ID)
	}
	res, err = repo.Search(ctx, tag, 1)
	if err != nil || len(res) != 1 {
		t.Fatalf("Search(limit 1) len=%d err=%v", len(res), err)
	}
}

func RunDocumentRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := open(t, newRepos)
	repo := repos.Documents

	d := SeedDriver(t, repos, "Ana", "Zambrano")
	base := time.Unix(5000, 0).UTC()
	mk := func(typ domain.DocumentType, at time.Time) domain.Document {
		return domain.Document{
			ID:          domain.DocumentID(uuid.NewString()),
			DriverID:    d.ID,
			Type:        typ,
			Location:    domain.DocumentLocation(d.ID, typ, at),
			ContentType: "application/pdf",
			Size:        42,
			CreatedAt:   at,
		}
	}
	oldLicense := mk(domain.DocumentTypeLicense, base)
	newLicense := mk(domain.DocumentTypeLicense, base.Add(time.Minute))
	photo := mk(domain.DocumentTypeDriverPhoto, base)
	nid := mk(domain.DocumentTypeNationalID, base)
	for _, doc := range []domain.Document{oldLicense, photo, newLicense, nid} {
		if err := repo.Create(ctx, doc); err != nil {
			t.Fatalf("Create(%s): %v", doc.Type, err)
		}
	}
	if err := repo.Create(ctx, nid); !errors.Is(err, documentrepo.ErrAlreadyExists) {
		t.Fatalf("Create(dup) err=%v, want %v", err, documentrepo.ErrAlreadyExists)
	}

	got, err := repo.ListByDriver(ctx, d.ID)
	if err != nil {
		t.Fatalf("ListByDriver: %v", err)
	}
	want := []domain.DocumentID{nid.ID, newLicense.ID, oldLicense.ID, photo.ID}
	if len(got) != len(want) {
		t.Fatalf("ListByDriver len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("ListByDriver[%d]=%s (%s), want %s", i, got[i].ID, got[i].Type, want[i])
		}
	}
	if got[0].Location != nid.Location || got[0].ContentType != "application/pdf" || got[0].Size != 42 {
		t.Fatalf("ListByDriver[0]=%+v", got[0])
	}

	empty, err := repo.ListByDriver(ctx, domain.DriverID(uuid.NewString()))
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListByDriver(unknown)=%v err=%v", empty, err)
	}
}

func RunComplaintRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := open(t, newRepos)
	repo := repos.Complaints

	d := SeedDriver(t, repos, "Ana", "Zambrano")
	first := domain.Complaint{ID: domain.ComplaintID(uuid.NewString()), DriverID: d.ID, Text: "exceso de velocidad", CreatedAt: time.Unix(100, 0).UTC()}
	second := domain.Complaint{ID: domain.ComplaintID(uuid.NewString()), DriverID: d.ID, Text: "no respetó el semáforo", CreatedAt: time.Unix(200, 0).UTC()}
	for _, c := range []domain.Complaint{first, second} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Create(ctx, first); !errors.Is(err, complaintrepo.ErrAlreadyExists) {
		t.Fatalf("Create(dup) err=%v, want %v", err, complaintrepo.ErrAlreadyExists)
	}
	got, err := repo.ListByDriver(ctx, d.ID)
	if err != nil {
		t.Fatalf("ListByDriver: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].Text != first.Text {
		t.Fatalf("ListByDriver=%+v, want newest first", got)
	}
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + unique()),
		Method:   "POST",
		Route:    "/api/register",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Subject and body hash are part of the fingerprint.
	other := fp
	other.Subject = "someone-else"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get(other subject) ok=%v err=%v, want miss", ok, err)
	}
}

func RunBlobStore(t *testing.T, newStore BlobStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	key := "driver-" + unique() + "/license_1700000000000"
	if err := store.Put(ctx, key, "application/pdf", []byte("%PDF-1.4 first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Overwrite.
	if err := store.Put(ctx, key, "image/jpeg", []byte("\xff\xd8\xff second")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	obj, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, err := io.ReadAll(obj.Body)
	_ = obj.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "\xff\xd8\xff second" || obj.ContentType != "image/jpeg" || obj.Size != int64(len(body)) {
		t.Fatalf("Get=%+v body=%q", obj, body)
	}

	if _, err := store.Get(ctx, "missing/key"); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want %v", err, blobstore.ErrNotFound)
	}
	if err := store.Put(ctx, "", "application/pdf", nil); !errors.Is(err, blobstore.ErrInvalidKey) {
		t.Fatalf("Put(empty key) err=%v, want %v", err, blobstore.ErrInvalidKey)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("Get after delete err=%v, want %v", err, blobstore.ErrNotFound)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("Delete twice err=%v, want %v", err, blobstore.ErrNotFound)
	}
}

func driverIDs(ds []domain.Driver) []domain.DriverID {
	out := make([]domain.DriverID, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}
