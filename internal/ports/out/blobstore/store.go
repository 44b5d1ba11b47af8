package blobstore

import (
	"context"
	"io"
)

// Object is a stored blob together with the metadata recorded at write time.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Store is the content store for uploaded document bytes.
//
// Put overwrites any existing object under the same key.
type Store interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}
