// Package fsio wraps the filesystem access chatpulse needs behind afero so
// commands and tests can swap the real disk for an in-memory filesystem.
package fsio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrMissingFile is wrapped when a configured input path does not exist.
var ErrMissingFile = errors.New("file does not exist")

// OS is the real filesystem.
var OS afero.Fs = afero.NewOsFs()

// RequireFile fails with ErrMissingFile unless path names an existing regular file.
func RequireFile(fsys afero.Fs, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrMissingFile)
	}
	fi, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissingFile, path)
	}
	return nil
}

// Open opens path for reading, mapping a missing file to ErrMissingFile.
func Open(fsys afero.Fs, path string) (afero.File, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// WriteFileAtomic streams content produced by write into a temp file next to
// path and renames it into place, so readers never see a half-written file.
func WriteFileAtomic(fsys afero.Fs, path string, perm os.FileMode, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := fsys.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Create opens path for writing, truncating any existing content. Parent
// directories are created as needed.
func Create(fsys afero.Fs, path string) (afero.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
