package driverrepo

import (
	"testing"

	"github.com/conductores/driver-registry-api/internal/adapters/contracttest"
	memcomplaintrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/complaintrepo"
	memdocumentrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/documentrepo"
	memidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/identityrepo"
)

func TestContract_DriverRepo(t *testing.T) {
	contracttest.RunDriverRepo(t, func(t *testing.T) (contracttest.Repos, func()) {
		t.Helper()
		return contracttest.Repos{
			Identities: memidentityrepo.NewRepo(),
			Drivers:    NewRepo(),
			Documents:  memdocumentrepo.NewRepo(),
			Complaints: memcomplaintrepo.NewRepo(),
		}, nil
	})
}
