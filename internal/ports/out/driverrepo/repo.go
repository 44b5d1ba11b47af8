package driverrepo

import (
	"context"

	"github.com/conductores/driver-registry-api/internal/domain"
)

// Repository provides access to persisted driver profiles.
//
// Result ordering expectations:
// - Search returns results ordered by LastNames, FirstNames (case-insensitive), then ID.
type Repository interface {
	// Create inserts a profile. IdentityID, NationalID and LookupToken are unique.
	Create(ctx context.Context, d domain.Driver) error

	GetByID(ctx context.Context, id domain.DriverID) (domain.Driver, error)
	GetByIdentity(ctx context.Context, identityID domain.IdentityID) (domain.Driver, error)
	GetByLookupToken(ctx context.Context, token domain.LookupToken) (domain.Driver, error)

	// Search matches every whitespace-separated token, case-insensitively, against
	// names, national ID and plate. Query validation lives in the application layer.
	Search(ctx context.Context, query string, limit int) ([]domain.Driver, error)
}
