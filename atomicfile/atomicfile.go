// Package atomicfile writes files through a temporary file and a final
// rename, so readers never observe partially written output.
package atomicfile

import (
	"os"
	"path/filepath"
)

// File wraps a temporary file; Close syncs and moves it into place.
type File struct {
	f    *os.File
	name string
}

// New creates a temporary file next to the final destination.
func New(name string) (*File, error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, base+".tmp-")
	if err != nil {
		return nil, err
	}
	return &File{f: f, name: name}, nil
}

func (af *File) Write(p []byte) (int, error) { return af.f.Write(p) }

// Close finishes the write and renames the temporary file to its final name.
// On any error the temporary file is removed.
func (af *File) Close() error {
	err := af.f.Sync()
	if closeErr := af.f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(af.f.Name(), af.name)
	}
	if err != nil {
		os.Remove(af.f.Name())
	}
	return err
}

// Abort discards the temporary file; the destination is never touched.
func (af *File) Abort() error {
	af.f.Close()
	return os.Remove(af.f.Name())
}

// WriteFile writes data to a temp file and atomically moves it into place if
// everything else succeeds.
func WriteFile(name string, data []byte, perm os.FileMode) error {
	af, err := New(name)
	if err != nil {
		return err
	}
	if _, err := af.Write(data); err != nil {
		af.Abort()
		return err
	}
	if err := os.Chmod(af.f.Name(), perm); err != nil {
		af.Abort()
		return err
	}
	return af.Close()
}
