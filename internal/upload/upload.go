// Package upload stores an uploaded export on disk for the duration of one
// import and removes it afterwards.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrTooLarge is returned by Save when the content exceeds the limit.
var ErrTooLarge = errors.New("upload too large")

// File is an export file on disk. Files created by Save are owned and
// deleted by Cleanup; files opened with Existing are left alone.
type File struct {
	Path  string
	Size  int64
	owned bool
}

// Save copies r into a new temporary file in dir (the OS temp dir when dir is
// empty). More than limit bytes yields ErrTooLarge and nothing is kept.
func Save(r io.Reader, dir string, limit int64) (*File, error) {
	tmp, err := os.CreateTemp(dir, "rideshare-*.json")
	if err != nil {
		return nil, fmt.Errorf("upload.Save: %w", err)
	}

	n, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	closeErr := tmp.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("upload.Save: copy: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("upload.Save: %w", closeErr)
	case n > limit:
		err = fmt.Errorf("upload.Save: %w: more than %d bytes", ErrTooLarge, limit)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &File{Path: tmp.Name(), Size: n, owned: true}, nil
}

// Existing wraps a file the caller owns, such as a path given on the command
// line. Cleanup will not delete it.
func Existing(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("upload.Existing: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("upload.Existing: %s is a directory", path)
	}
	return &File{Path: path, Size: info.Size()}, nil
}

// Open opens the file for reading.
func (f *File) Open() (io.ReadCloser, error) {
	rc, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("upload.File.Open: %w", err)
	}
	return rc, nil
}

// Cleanup deletes an owned file. It is safe to call more than once.
func (f *File) Cleanup() error {
	if !f.owned {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("upload.File.Cleanup: %w", err)
	}
	return nil
}
