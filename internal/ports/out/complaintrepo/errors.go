package complaintrepo

import "errors"

var (
	// ErrAlreadyExists indicates a complaint already exists with the provided ID.
	ErrAlreadyExists = errors.New("complaint already exists")

	// ErrUnknownDriver indicates the referenced driver does not exist.
	ErrUnknownDriver = errors.New("complaint driver does not exist")
)
