package blobstore

import (
	"testing"

	"github.com/conductores/driver-registry-api/internal/adapters/contracttest"
	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
)

func TestContract_BlobStore(t *testing.T) {
	contracttest.RunBlobStore(t, func(t *testing.T) (blobstore.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
