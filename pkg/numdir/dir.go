package numdir

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/danieljhkim/scratchdir/internal/fsops"
)

// Dir is one allocated directory of a numbered series.
type Dir struct {
	path   string
	base   string
	number uint16

	alloc *Allocator
}

func (a *Allocator) newDir(path, base string, number uint16) *Dir {
	return &Dir{path: path, base: base, number: number, alloc: a}
}

// Path returns the absolute path of the directory.
func (d *Dir) Path() string { return d.path }

// Base returns the name prefix of the series.
func (d *Dir) Base() string { return d.base }

// Number returns the number of the directory within its series.
func (d *Dir) Number() uint16 { return d.number }

func (d *Dir) String() string { return d.path }

// Carve creates a new directory at relPath below d and returns its path.
//
// Missing ancestors of relPath are created as needed. If the final
// component is already taken, "-0", "-1", ... is appended to it until a free
// name is found, so every call returns a directory that did not exist
// before. relPath may contain ".." components; nothing stops it from
// leaving d.
func (d *Dir) Carve(relPath string) (string, error) {
	fsys := d.alloc.fs
	if err := fsys.ValidateRelPath(relPath); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	rel := filepath.Clean(relPath)
	if parent := filepath.Dir(rel); parent != "." {
		parentPath := filepath.Join(d.path, parent)
		if err := fsys.MkdirAll(parentPath, dirPerm); err != nil {
			return "", fmt.Errorf("failed to create subdir parent %s: %w", parentPath, err)
		}
	}

	fullPath := filepath.Join(d.path, rel)
	name := filepath.Base(fullPath)
	var lastErr error
	for i := 0; i < d.alloc.maxSuffixes; i++ {
		err := fsys.Mkdir(fullPath, dirPerm)
		if err == nil {
			return fullPath, nil
		}
		if !fsops.IsExist(err) {
			return "", fmt.Errorf("failed to create subdir %s: %w", fullPath, err)
		}
		lastErr = err
		fullPath = filepath.Join(filepath.Dir(fullPath), name+"-"+strconv.Itoa(i))
	}
	return "", fmt.Errorf("%w: all filename alternatives for %s exhausted: %w",
		ErrCollisionExhausted, relPath, lastErr)
}
