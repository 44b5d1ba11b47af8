package tokens

import (
	"context"
	"time"

	"github.com/conductores/driver-registry-api/internal/domain"
)

// AccessToken is a signed bearer token handed to a driver after login.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer mints access tokens for authenticated identities.
type Issuer interface {
	Issue(ctx context.Context, subject domain.IdentityID, role domain.Role) (AccessToken, error)
}
