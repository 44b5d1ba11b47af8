package blobstore

import "errors"

var (
	// ErrNotFound indicates no object exists under the key.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey indicates the key is empty or escapes the store namespace.
	ErrInvalidKey = errors.New("invalid object key")
)
