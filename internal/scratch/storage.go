// Package scratch hands out uniquely named temporary files that are always
// removed by their caller, so concurrent conversions never share a path.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"

	"tabio/domain/core"
	"tabio/internal/errors"
)

// Storage creates temporary files under a base directory
type Storage struct {
	dir string
}

// File is an open temporary file plus its release func
type File struct {
	*os.File
	path string
}

// NewStorage creates scratch storage rooted at dir; empty means os.TempDir()
func NewStorage(dir string) *Storage {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Storage{dir: dir}
}

// Dir returns the base directory
func (s *Storage) Dir() string {
	return s.dir
}

// Create opens a new empty file named <prefix>_<id><ext>. The caller must
// call Release, which closes and deletes the file.
func (s *Storage) Create(prefix, ext string) (*File, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.IOError(s.dir, fmt.Errorf("failed to create scratch directory: %w", err))
	}

	name := fmt.Sprintf("%s_%s%s", prefix, core.NewID(), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, errors.IOError(path, fmt.Errorf("failed to create scratch file: %w", err))
	}
	return &File{File: f, path: path}, nil
}

// Path returns the file's location on disk
func (f *File) Path() string {
	return f.path
}

// Release closes and removes the file. It is safe to call more than once.
func (f *File) Release() error {
	_ = f.File.Close()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.IOError(f.path, fmt.Errorf("failed to delete scratch file: %w", err))
	}
	return nil
}
