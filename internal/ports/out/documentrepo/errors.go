package documentrepo

import "errors"

var (
	// ErrAlreadyExists indicates a document already exists with the provided ID.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrUnknownDriver indicates the referenced driver does not exist.
	ErrUnknownDriver = errors.New("document driver does not exist")
)
