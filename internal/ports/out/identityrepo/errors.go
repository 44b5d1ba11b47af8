package identityrepo

import "errors"

var (
	// ErrNotFound indicates the requested identity does not exist.
	ErrNotFound = errors.New("identity not found")

	// ErrEmailTaken indicates an identity already exists for the email address.
	ErrEmailTaken = errors.New("identity email already registered")

	// ErrAlreadyExists indicates an identity already exists with the provided ID.
	ErrAlreadyExists = errors.New("identity already exists")
)
