package complaintrepo

import (
	"context"

	"github.com/conductores/driver-registry-api/internal/domain"
)

// Repository stores complaints filed against drivers.
type Repository interface {
	Create(ctx context.Context, c domain.Complaint) error

	// ListByDriver returns complaints newest first.
	ListByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Complaint, error)
}
