package domain

import "time"

// Driver is the domain representation of a registered driver. Exactly one
// identity owns each driver profile.
type Driver struct {
	ID         DriverID
	IdentityID IdentityID

	FirstNames    string
	LastNames     string
	NationalID    string
	LicenseNumber string
	Phone         string
	Address       string

	Vehicle Vehicle

	LookupToken LookupToken

	CreatedAt time.Time
}

// Vehicle is the vehicle a driver is registered with.
type Vehicle struct {
	Plate        string
	Make         string
	Model        string
	Color        string
	PolicyNumber string
}

// PublicDriver is the subset of a driver profile that is safe to expose through a
// lookup token. It deliberately omits identity, contact and document numbers.
type PublicDriver struct {
	ID         DriverID
	FirstNames string
	LastNames  string

	Plate string
	Make  string
	Model string
	Color string
}

func (d Driver) Public() PublicDriver {
	return PublicDriver{
		ID:         d.ID,
		FirstNames: d.FirstNames,
		LastNames:  d.LastNames,
		Plate:      d.Vehicle.Plate,
		Make:       d.Vehicle.Make,
		Model:      d.Vehicle.Model,
		Color:      d.Vehicle.Color,
	}
}
