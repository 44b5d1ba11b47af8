package httpapi

import (
	"context"

	"github.com/conductores/driver-registry-api/internal/domain"
)

type principalKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject domain.IdentityID
	Role    domain.Role
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Subject != ""
}
