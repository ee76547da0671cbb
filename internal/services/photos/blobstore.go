package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrBlobNotFound is returned by BlobStore.Open for unknown keys
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps photo bytes addressed by key
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// FSStore stores blobs as files below a root directory
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes r to a temp file and renames it into place
func (s *FSStore) Put(_ context.Context, key string, r io.Reader) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FSStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return f, err
}

// Delete removes a blob. Unknown keys are not an error.
func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
