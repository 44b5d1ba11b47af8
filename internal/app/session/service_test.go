package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	memclock "github.com/conductores/driver-registry-api/internal/adapters/memory/clock"
	memidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/memory/identityrepo"
	"github.com/conductores/driver-registry-api/internal/app/apperr"
	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/platform/auth/jwtverifier"
	"github.com/conductores/driver-registry-api/internal/platform/auth/password"
	"github.com/conductores/driver-registry-api/internal/platform/auth/tokenissuer"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

func setup(t *testing.T) (*Service, *jwtverifier.Verifier) {
	t.Helper()

	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	hasher := password.NewHasher(bcrypt.MinCost)
	repo := memidentityrepo.NewRepo()

	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), identityrepo.Identity{
		ID:           "identity-1",
		Email:        "ana@example.com",
		PasswordHash: hash,
		Role:         domain.RoleDriver,
		CreatedAt:    clk.Now(),
	}))

	key, err := tokenissuer.LoadKey("")
	require.NoError(t, err)
	iss, err := tokenissuer.New(key, tokenissuer.Config{Issuer: "registry", Audience: "registry-api", TTL: time.Hour}, clk)
	require.NoError(t, err)

	return NewService(repo, hasher, iss, zap.NewNop()),
		jwtverifier.NewWithKeys(iss.Issuer(), iss.Audience(), 0, iss, clk)
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	t.Parallel()

	svc, v := setup(t)
	tok, err := svc.Login(context.Background(), " Ana@Example.com ", "correct-horse")
	require.NoError(t, err)

	p, err := v.Verify(context.Background(), tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "identity-1", p.Subject)
	assert.Equal(t, string(domain.RoleDriver), p.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc, _ := setup(t)
	for _, tc := range []struct{ email, password string }{
		{"ana@example.com", "wrong-password"},
		{"nobody@example.com", "correct-horse"},
	} {
		_, err := svc.Login(context.Background(), tc.email, tc.password)
		ae, ok := apperr.As(err)
		require.True(t, ok, "err=%v", err)
		assert.Equal(t, 400, ae.Status)
		assert.Equal(t, "INVALID_CREDENTIALS", ae.Code)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	t.Parallel()

	svc, _ := setup(t)
	_, err := svc.Login(context.Background(), "", "")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}

type countingChecker struct {
	PasswordChecker
	compares int
}

func (c *countingChecker) Compare(hash []byte, plain string) error {
	c.compares++
	return c.PasswordChecker.Compare(hash, plain)
}

func TestLogin_UnknownEmailStillComparesPassword(t *testing.T) {
	t.Parallel()

	checker := &countingChecker{PasswordChecker: password.NewHasher(bcrypt.MinCost)}
	svc := NewService(memidentityrepo.NewRepo(), checker, nil, zap.NewNop())

	for range 2 {
		_, err := svc.Login(context.Background(), "nobody@example.com", "correct-horse")
		ae, ok := apperr.As(err)
		require.True(t, ok, "err=%v", err)
		assert.Equal(t, "INVALID_CREDENTIALS", ae.Code)
	}
	assert.Equal(t, 2, checker.compares)
	assert.NotEmpty(t, svc.dummyHash)
}
