// Package uploads stores user-supplied files under the configured directory.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tgienger/teamboard/internal/models"
)

// URLPrefix is the path the upload directory is served under
const URLPrefix = "/uploads"

var (
	// ErrTooLarge is returned for files above the size limit
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned for a disallowed file extension
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ImageExtensions are the extensions accepted for avatars
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

// Store writes uploads to disk
type Store struct {
	dir      string
	maxBytes int64
}

// New creates a Store rooted at dir
func New(dir string, maxBytes int64) *Store {
	return &Store{dir: dir, maxBytes: maxBytes}
}

// Dir returns the root directory
func (s *Store) Dir() string {
	return s.dir
}

// Save copies fh into kind/ under a random name. When allowed is non-empty the
// file extension must be one of it.
func (s *Store) Save(fh *multipart.FileHeader, kind string, allowed ...string) (*models.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if len(allowed) > 0 && !contains(allowed, ext) {
		return nil, fmt.Errorf("%w: %q, want one of %s", ErrUnsupportedType, ext, strings.Join(allowed, ", "))
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, fh.Size, s.maxBytes)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	n, err := s.write(filepath.Join(kind, name), src)
	if err != nil {
		return nil, err
	}

	return &models.Attachment{
		Name: fh.Filename,
		URL:  URLPrefix + "/" + kind + "/" + name,
		Size: n,
		Type: fh.Header.Get("Content-Type"),
	}, nil
}

func (s *Store) write(rel string, src io.Reader) (int64, error) {
	path := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload: %w", err)
	}
	defer dst.Close()

	reader := src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	n, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write upload: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		os.Remove(path)
		return 0, fmt.Errorf("%w: limit %d", ErrTooLarge, s.maxBytes)
	}
	return n, nil
}

// Remove deletes the file behind a URL returned by Save. Unknown URLs are ignored.
func (s *Store) Remove(url string) error {
	rel, ok := strings.CutPrefix(url, URLPrefix+"/")
	if !ok || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
