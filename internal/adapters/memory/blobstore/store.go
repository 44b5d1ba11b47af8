package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
)

type object struct {
	contentType string
	data        []byte
}

// Store is an in-memory implementation of blobstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	puts    int

	// FailPut, when set, is returned from Put.
	FailPut error
}

func NewStore() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Put(ctx context.Context, key string, contentType string, data []byte) error {
	_ = ctx
	if key == "" {
		return blobstore.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil {
		return s.FailPut
	}
	s.objects[key] = object{contentType: contentType, data: append([]byte(nil), data...)}
	s.puts++
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (blobstore.Object, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return blobstore.Object{}, blobstore.ErrNotFound
	}
	return blobstore.Object{
		Key:         key,
		ContentType: o.contentType,
		Size:        int64(len(o.data)),
		Body:        io.NopCloser(bytes.NewReader(o.data)),
	}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return blobstore.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

// Puts reports how many successful writes the store has accepted.
func (s *Store) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

// Len reports how many objects are currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
