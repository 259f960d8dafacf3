package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Asset kinds, each stored under its own subdirectory
const (
	KindWorkload = "workloads"
	KindPlatform = "platforms"
	KindStrategy = "strategies"
	KindResult   = "results"
)

// Store saves and serves uploaded description files on the local filesystem
type Store struct {
	root string
}

// SavedFile describes a stored upload
type SavedFile struct {
	Path string // absolute path on disk
	Size int64
	MIME string // detected content type
}

// New creates a store rooted at the given directory, creating kind
// subdirectories as needed
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	for _, kind := range []string{KindWorkload, KindPlatform, KindStrategy, KindResult} {
		if err := os.MkdirAll(filepath.Join(abs, kind), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &Store{root: abs}, nil
}

// Root returns the storage root directory
func (s *Store) Root() string {
	return s.root
}

// SaveUpload stores a multipart upload under <root>/<kind>/<name>_<filename>
// and returns the stored path with the sniffed content type
func (s *Store) SaveUpload(kind, name string, header *multipart.FileHeader) (*SavedFile, error) {
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(s.root, kind, fmt.Sprintf("%s_%s", name, filepath.Base(header.Filename)))

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	mtype, err := mimetype.DetectFile(dstPath)
	if err != nil {
		// Sniffing failure is not fatal, fall back to the client-declared type
		return &SavedFile{Path: dstPath, Size: size, MIME: header.Header.Get("Content-Type")}, nil
	}

	return &SavedFile{Path: dstPath, Size: size, MIME: mtype.String()}, nil
}

// WriteFile stores raw bytes under <root>/<kind>/<name> and returns the path
func (s *Store) WriteFile(kind, name string, data []byte) (string, error) {
	path := filepath.Join(s.root, kind, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// ReadFile reads a stored file back
func (s *Store) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

// Remove deletes a stored file, tolerating files already gone
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stored file: %w", err)
	}
	return nil
}
