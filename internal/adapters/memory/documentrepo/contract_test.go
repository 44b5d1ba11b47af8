package documentrepo

import (
	"testing"

	"github.com/conductores/driver-registry-api/internal/adapters/contracttest"
	memcomplaintrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/complaintrepo"
	memdriverrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/driverrepo"
	memidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/identityrepo"
)

func TestContract_DocumentRepo(t *testing.T) {
	contracttest.RunDocumentRepo(t, func(t *testing.T) (contracttest.Repos, func()) {
		t.Helper()
		return contracttest.Repos{
			Identities: memidentityrepo.NewRepo(),
			Drivers:    memdriverrepo.NewRepo(),
			Documents:  NewRepo(),
			Complaints: memcomplaintrepo.NewRepo(),
		}, nil
	})
}
