package driverrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
)

func TestRepo_SearchEmptyQueryReturnsNothing(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	require.NoError(t, r.Create(context.Background(), domain.Driver{ID: "d1", IdentityID: "i1", NationalID: "n1", LookupToken: "t1", FirstNames: "Ana"}))

	got, err := r.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepo_FailCreateLeavesNoRow(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	r.FailCreate = errors.New("boom")
	err := r.Create(context.Background(), domain.Driver{ID: "d1", IdentityID: "i1", NationalID: "n1", LookupToken: "t1"})
	require.Error(t, err)

	_, err = r.GetByIdentity(context.Background(), "i1")
	assert.ErrorIs(t, err, driverrepo.ErrNotFound)
}
