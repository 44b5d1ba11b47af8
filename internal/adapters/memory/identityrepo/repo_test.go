package identityrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

func TestRepo_CreateGetDelete(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	id := identityrepo.Identity{
		ID:           "i1",
		Email:        "Ana@Example.com",
		PasswordHash: []byte("hash"),
		Role:         domain.RoleDriver,
		CreatedAt:    time.Unix(100, 0).UTC(),
	}
	require.NoError(t, r.Create(ctx, id))

	got, err := r.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.IdentityID("i1"), got.ID)

	// Returned hashes are copies.
	got.PasswordHash[0] = 'X'
	again, err := r.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), again.PasswordHash)

	require.NoError(t, r.Delete(ctx, "i1"))
	assert.Equal(t, 0, r.Len())
	_, err = r.GetByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, identityrepo.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "i1"), identityrepo.ErrNotFound)
}

func TestRepo_CreateRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, identityrepo.Identity{ID: "i1", Email: "ana@example.com"}))

	err := r.Create(ctx, identityrepo.Identity{ID: "i2", Email: " ANA@example.com "})
	assert.ErrorIs(t, err, identityrepo.ErrEmailTaken)

	err = r.Create(ctx, identityrepo.Identity{ID: "i1", Email: "other@example.com"})
	assert.ErrorIs(t, err, identityrepo.ErrAlreadyExists)
}
