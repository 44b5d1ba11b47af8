package documentrepo

import (
	"context"

	"github.com/conductores/driver-registry-api/internal/domain"
)

// Repository stores document pointers. It never touches object bytes.
type Repository interface {
	Create(ctx context.Context, d domain.Document) error

	// ListByDriver returns documents ordered by Type (allow-list order), then newest first.
	ListByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Document, error)
}
