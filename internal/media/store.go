package media

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps disk copies of product images. Files are named by a generated
// UUID key plus a detected extension, never by the uploaded filename, so an
// upload name can neither escape the directory nor collide with another file.
type Store struct {
	baseDir string
}

// NewStore creates the media directory if needed and returns a store over it.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes image bytes to a fresh file and returns its storage key.
func (s *Store) Save(data []byte) (string, error) {
	key := uuid.New().String() + extensionFor(data)

	if err := os.WriteFile(filepath.Join(s.baseDir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	return key, nil
}

// Read returns the bytes stored under a key.
func (s *Store) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read media file: %w", err)
	}
	return data, nil
}

// Remove deletes the file stored under a key. A missing file is not an
// error: the row is the source of truth and the disk copy may already be gone.
func (s *Store) Remove(key string) error {
	if key == "" {
		return nil
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}

// Exists reports whether a key has a disk copy.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// path resolves a key inside the media directory. Keys are generated by this
// store, but Base strips any separators handed in from elsewhere.
func (s *Store) path(key string) string {
	return filepath.Join(s.baseDir, filepath.Base(key))
}

func extensionFor(data []byte) string {
	mimeType := http.DetectContentType(data)
	mimeType = strings.Split(mimeType, ";")[0]

	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
