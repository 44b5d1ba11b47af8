package domain

import "time"

// Role is the authorization role attached to an identity.
type Role string

const (
	RoleDriver Role = "driver"
)

// Identity is an authentication-platform user record.
type Identity struct {
	ID    IdentityID
	Email string
	Role  Role

	CreatedAt time.Time
}
