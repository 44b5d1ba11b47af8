package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/conductores/driver-registry-api/internal/ports/out/blobstore"
)

const metaSuffix = ".meta.json"

type meta struct {
	ContentType string `json:"contentType"`
}

// Store keeps objects as files below a root directory. Each object has a sidecar
// file holding its content type. Writes go through a temp file and rename so a
// reader never sees a partial object.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) Put(ctx context.Context, key string, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	mb, err := json.Marshal(meta{ContentType: contentType})
	if err != nil {
		return err
	}
	if err := writeAtomic(p+metaSuffix, mb); err != nil {
		return err
	}
	return writeAtomic(p, data)
}

func (s *Store) Get(ctx context.Context, key string) (blobstore.Object, error) {
	if err := ctx.Err(); err != nil {
		return blobstore.Object{}, err
	}
	p, err := s.path(key)
	if err != nil {
		return blobstore.Object{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blobstore.Object{}, blobstore.ErrNotFound
		}
		return blobstore.Object{}, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return blobstore.Object{}, err
	}
	var m meta
	if mb, err := os.ReadFile(p + metaSuffix); err == nil {
		_ = json.Unmarshal(mb, &m)
	}
	if m.ContentType == "" {
		m.ContentType = "application/octet-stream"
	}
	return blobstore.Object{
		Key:         key,
		ContentType: m.ContentType,
		Size:        st.Size(),
		Body:        f,
	}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blobstore.ErrNotFound
		}
		return err
	}
	_ = os.Remove(p + metaSuffix)
	return nil
}

// path maps a key to a file below root, rejecting keys that would escape it.
func (s *Store) path(key string) (string, error) {
	if key == "" || strings.HasSuffix(key, metaSuffix) || strings.Contains(key, "\\") {
		return "", blobstore.ErrInvalidKey
	}
	clean := filepath.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return "", blobstore.ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func writeAtomic(p string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}
