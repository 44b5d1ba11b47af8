package identityrepo

import (
	"context"
	"time"

	"github.com/conductores/driver-registry-api/internal/domain"
)

// Identity is the persistence shape of an authentication record.
type Identity struct {
	ID           domain.IdentityID
	Email        string
	PasswordHash []byte
	Role         domain.Role

	CreatedAt time.Time
}

//go:generate mockgen -source=repo.go -destination=mocks/mock_repo.go -package=mocks

// Repository stores identities. Email uniqueness is case-insensitive.
type Repository interface {
	Create(ctx context.Context, id Identity) error
	// Delete removes an identity. It is the compensating action for a failed
	// driver profile insert, so implementations must not cascade into profiles.
	Delete(ctx context.Context, id domain.IdentityID) error

	GetByID(ctx context.Context, id domain.IdentityID) (Identity, error)
	GetByEmail(ctx context.Context, email string) (Identity, error)
}
