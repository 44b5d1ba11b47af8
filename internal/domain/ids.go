package domain

// IdentityID identifies an authentication record. It is also the `sub` claim of
// access tokens issued for that identity.
type IdentityID string

// DriverID is an internal identifier for a driver profile.
type DriverID string

// DocumentID is an internal identifier for an uploaded document pointer.
type DocumentID string

// ComplaintID is an internal identifier for a complaint record.
type ComplaintID string

// LookupToken is the opaque QR payload granting unauthenticated read access to a
// driver's public profile. It is issued once at registration and never changes.
type LookupToken string
