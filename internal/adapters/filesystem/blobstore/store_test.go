package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductores/driver-registry-api/internal/adapters/contracttest"
	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
)

func TestContract_FilesystemBlobStore(t *testing.T) {
	contracttest.RunBlobStore(t, func(t *testing.T) (blobstore.Store, func()) {
		t.Helper()
		s, err := NewStore(t.TempDir())
		require.NoError(t, err)
		return s, nil
	})
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../etc/passwd", "a/../../b", "/abs", "a//b", `a\b`, "x" + metaSuffix} {
		err := s.Put(context.Background(), key, "application/pdf", []byte("x"))
		assert.ErrorIs(t, err, blobstore.ErrInvalidKey, key)
	}
}

func TestNewStore_RequiresRoot(t *testing.T) {
	t.Parallel()

	_, err := NewStore("  ")
	assert.Error(t, err)
}
