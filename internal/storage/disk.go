package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is the capability the listing service needs from asset storage.
type Store interface {
	Save(src io.Reader, originalName string) (string, error)
	Delete(name string) error
	URL(name string) string
}

// DiskStore keeps uploaded assets as files under a fixed root directory.
// Names are generated per save, so concurrent saves never collide and an
// existing file is never overwritten.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates the root directory if needed and returns the store.
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	return &DiskStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save writes src to a freshly named file, keeping the original extension
// so served content keeps its type. Partial writes are removed.
func (s *DiskStore) Save(src io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.NewString() + ext

	path := filepath.Join(s.root, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}

// Delete removes the named asset. A name that is already absent is not an
// error; a listing delete must not fail because a file is gone.
func (s *DiskStore) Delete(name string) error {
	if !ValidName(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// URL maps an asset name to its public path.
func (s *DiskStore) URL(name string) string {
	return s.baseURL + "/" + name
}

// Root returns the storage directory, for static serving.
func (s *DiskStore) Root() string { return s.root }

// Exists reports whether the named asset is on disk.
func (s *DiskStore) Exists(name string) bool {
	if !ValidName(name) {
		return false
	}
	_, err := os.Stat(filepath.Join(s.root, name))
	return err == nil
}

// ValidName rejects anything that could escape the storage root.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
