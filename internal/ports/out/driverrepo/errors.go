package driverrepo

import "errors"

var (
	// ErrNotFound indicates the requested driver does not exist.
	ErrNotFound = errors.New("driver not found")

	// ErrAlreadyExists indicates a driver already exists with the provided ID.
	ErrAlreadyExists = errors.New("driver already exists")

	// ErrIdentityAlreadyBound indicates a driver profile already exists for the identity.
	ErrIdentityAlreadyBound = errors.New("driver identity already bound")

	// ErrDuplicateNationalID indicates another driver is registered with the national ID.
	ErrDuplicateNationalID = errors.New("driver national id already registered")

	// ErrDuplicateLookupToken indicates a lookup token collision.
	ErrDuplicateLookupToken = errors.New("driver lookup token already issued")
)
