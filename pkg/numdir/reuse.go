package numdir

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ReusePredicate decides whether an existing numbered directory should be
// adopted instead of allocating a new one.
type ReusePredicate interface {
	Reuse(path string) bool
}

// ReuseFunc adapts a function to ReusePredicate.
type ReuseFunc func(path string) bool

// Reuse calls f(path).
func (f ReuseFunc) Reuse(path string) bool { return f(path) }

// Open adopts an existing numbered directory. The last component of path
// must have the form "{base}-{number}" and path must be a directory.
func (a *Allocator) Open(path string) (*Dir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	name := filepath.Base(abs)
	i := strings.LastIndexByte(name, '-')
	if i <= 0 {
		return nil, fmt.Errorf("%w: %s is not a numbered directory", ErrInvalidInput, path)
	}
	base := name[:i]
	entry, ok := parseEntry(name, base+"-")
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a numbered directory", ErrInvalidInput, path)
	}
	info, err := a.fs.Lstat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidInput, abs)
	}
	return a.newDir(abs, base, entry.Number), nil
}

// Existing returns the directories of the base series in parent, newest
// first. Newest is measured backwards from the highest number, so a series
// that wrapped past 65535 still orders correctly as long as it spans less
// than half the range.
func (a *Allocator) Existing(parent, base string) ([]*Dir, error) {
	if err := a.fs.ValidateBase(base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	parent, err := filepath.Abs(parent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent directory: %w", err)
	}
	seq, err := a.ListEntries(parent, base)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for entry := range seq {
		path := filepath.Join(parent, entry.Name)
		info, err := a.fs.Lstat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	newest := newestNumber(entries)
	sort.Slice(entries, func(i, j int) bool {
		return newest-entries[i].Number < newest-entries[j].Number
	})

	dirs := make([]*Dir, 0, len(entries))
	for _, entry := range entries {
		dirs = append(dirs, a.newDir(filepath.Join(parent, entry.Name), base, entry.Number))
	}
	return dirs, nil
}

// newestNumber picks the entry with no other entry less than half the range
// ahead of it. Falls back to the plain maximum when entries are spread over
// the whole ring.
func newestNumber(entries []Entry) uint16 {
	var max uint16
	for _, e := range entries {
		if e.Number > max {
			max = e.Number
		}
	}
	newest := max
	for _, e := range entries {
		if d := e.Number - newest; d != 0 && d <= halfRange {
			newest = e.Number
		}
	}
	return newest
}

// AllocateOrReuse returns the first existing directory, newest first, for
// which pred reports true. Otherwise it allocates a new one like Allocate.
// The boolean result reports whether a directory was reused.
func (a *Allocator) AllocateOrReuse(parent, base string, count uint8, pred ReusePredicate) (*Dir, bool, error) {
	if pred != nil {
		if err := a.fs.MkdirAll(parent, dirPerm); err != nil {
			return nil, false, fmt.Errorf("failed to create parent directory: %w", err)
		}
		existing, err := a.Existing(parent, base)
		if err != nil {
			return nil, false, err
		}
		for _, dir := range existing {
			if pred.Reuse(dir.Path()) {
				a.logger.Info().Str("path", dir.Path()).Msg("reusing numbered directory")
				return dir, true, nil
			}
		}
	}
	dir, err := a.Allocate(parent, base, count)
	return dir, false, err
}
