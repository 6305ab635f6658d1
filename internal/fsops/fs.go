// Package fsops provides the filesystem operations scratchdir relies on.
//
// All filesystem mutations made by the allocator, the carver and the session
// markers go through the FS interface, so tests can substitute an
// implementation that injects races and failures.
//
// Key features:
//   - Mkdir as the single atomic "create, fail if it exists" primitive
//   - Streaming directory reads via OpenDir
//   - Atomic writes using temp file + rename
//   - Validation for base names and relative paths
package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirReader streams the entries of an open directory. *os.File satisfies it.
type DirReader interface {
	// ReadDir reads up to n entries. See os.File.ReadDir.
	ReadDir(n int) ([]os.DirEntry, error)

	// Close releases the directory handle.
	Close() error
}

// FS provides an abstraction for filesystem operations.
// All filesystem mutations in scratchdir must go through this interface.
type FS interface {
	// Mkdir creates a single directory. It fails with fs.ErrExist if
	// anything already exists at path; concurrent callers racing for the
	// same path see exactly one success.
	Mkdir(path string, perm os.FileMode) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// OpenDir opens a directory for streaming reads.
	OpenDir(path string) (DirReader, error)

	// Lstat returns file info without following symlinks.
	Lstat(path string) (os.FileInfo, error)

	// Readlink reads the target of a symlink.
	Readlink(path string) (string, error)

	// Symlink creates a symbolic link from newname to oldname.
	Symlink(oldname, newname string) error

	// Remove removes a file, symlink or empty directory.
	Remove(path string) error

	// RemoveAll removes a path and all its contents. A missing path is not
	// an error.
	RemoveAll(path string) error

	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// AtomicWrite writes data to path atomically using temp file + rename.
	AtomicWrite(path string, data []byte, perm os.FileMode) error

	// Exists checks if a path exists without following symlinks.
	Exists(path string) (bool, error)

	// ValidateBase validates the base name of a numbered directory series.
	ValidateBase(base string) error

	// ValidateRelPath validates a relative path to carve below a directory.
	ValidateRelPath(relPath string) error
}

// ErrInvalidPath is returned by the validation helpers.
var ErrInvalidPath = errors.New("invalid path")

// RealFS implements FS using actual OS operations.
type RealFS struct{}

// NewRealFS creates a new RealFS.
func NewRealFS() *RealFS {
	return &RealFS{}
}

// Mkdir creates a single directory.
func (fs *RealFS) Mkdir(path string, perm os.FileMode) error {
	return os.Mkdir(path, perm)
}

// MkdirAll creates a directory and all parent directories.
func (fs *RealFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// OpenDir opens a directory for streaming reads.
func (fs *RealFS) OpenDir(path string) (DirReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		_ = f.Close()
		return nil, &os.PathError{Op: "opendir", Path: path, Err: errors.New("not a directory")}
	}
	return f, nil
}

// Lstat returns file info without following symlinks.
func (fs *RealFS) Lstat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

// Readlink reads the target of a symlink.
func (fs *RealFS) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

// Symlink creates a symbolic link from newname to oldname.
func (fs *RealFS) Symlink(oldname, newname string) error {
	return os.Symlink(oldname, newname)
}

// Remove removes a file, symlink or empty directory.
func (fs *RealFS) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll removes a path and all its contents.
func (fs *RealFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// ReadFile reads the entire contents of a file.
func (fs *RealFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// AtomicWrite writes data to path atomically using temp file + rename.
func (fs *RealFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Same directory as the target so the rename never crosses filesystems
	tmpFile, err := os.CreateTemp(dir, ".scratchdir-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmpFile = nil
	return nil
}

// Exists checks if a path exists.
func (fs *RealFS) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ValidateBase validates the base name of a numbered directory series.
// The base becomes a single path component, so it must not contain
// separators of any platform.
func (fs *RealFS) ValidateBase(base string) error {
	return ValidateBase(base)
}

// ValidateRelPath validates a relative path to carve below a directory.
func (fs *RealFS) ValidateRelPath(relPath string) error {
	return ValidateRelPath(relPath)
}

// ValidateBase is the implementation behind RealFS.ValidateBase, exported so
// alternative FS implementations can share it.
func ValidateBase(base string) error {
	if base == "" {
		return fmt.Errorf("%w: base must not be empty", ErrInvalidPath)
	}
	if strings.ContainsAny(base, `/\`) || strings.ContainsRune(base, filepath.Separator) {
		return fmt.Errorf("%w: base %q must not contain path separators", ErrInvalidPath, base)
	}
	if base == "." || base == ".." {
		return fmt.Errorf("%w: base %q is a directory reference", ErrInvalidPath, base)
	}
	return nil
}

// ValidateRelPath checks that relPath is relative and names a final
// component. Parent references are allowed: callers are trusted not to
// escape the directory they carve into.
func ValidateRelPath(relPath string) error {
	if relPath == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if filepath.IsAbs(relPath) || strings.HasPrefix(relPath, "/") || strings.HasPrefix(relPath, `\`) {
		return fmt.Errorf("%w: must be relative, got %q", ErrInvalidPath, relPath)
	}
	switch filepath.Base(filepath.Clean(relPath)) {
	case ".", "..", string(filepath.Separator):
		return fmt.Errorf("%w: %q does not end in a file name", ErrInvalidPath, relPath)
	}
	return nil
}

// IsExist reports whether err means the target already exists.
func IsExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// IsNotExist reports whether err means the target does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
