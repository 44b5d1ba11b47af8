package registration

import "github.com/conductores/driver-registry-api/internal/domain"

// Input is a self-registration request: credentials plus the driver profile.
type Input struct {
	Email    string
	Password string

	FirstNames    string
	LastNames     string
	NationalID    string
	LicenseNumber string
	Phone         string
	Address       string

	Plate        string
	VehicleMake  string
	VehicleModel string
	VehicleColor string
	PolicyNumber string
}

// Registration is the result of a successful registration.
type Registration struct {
	IdentityID  domain.IdentityID
	DriverID    domain.DriverID
	LookupToken domain.LookupToken
}
