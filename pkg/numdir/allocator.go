// Package numdir allocates sequentially numbered directories on a shared
// filesystem.
//
// A series lives in a parent directory and consists of directories named
// "{base}-{number}", where number is a uint16 that wraps around. Each
// allocation creates the next number, points the "{base}-current" symlink at
// it and removes the oldest entries beyond the retention count. Any number of
// processes may allocate from the same series concurrently: the atomicity of
// mkdir picks one winner per number and losers move on to the next one.
//
// Inside an allocated directory, Dir.Carve creates uniquely named
// subdirectories, appending "-0", "-1", ... to the last path component when
// the name is taken.
package numdir

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/danieljhkim/scratchdir/internal/fsops"
)

const (
	// DefaultMaxAttempts bounds the numbers tried by one allocation.
	DefaultMaxAttempts = 16

	// DefaultMaxSuffixes bounds the names tried by one Carve call.
	DefaultMaxSuffixes = math.MaxUint16

	// CurrentSuffix names the symlink to the newest directory of a series.
	CurrentSuffix = "current"

	dirPerm = 0o755
)

// Allocator creates, lists and retires numbered directories.
// The zero value is not usable; call New.
type Allocator struct {
	fs          fsops.FS
	logger      zerolog.Logger
	maxAttempts int
	maxSuffixes int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithFS sets the filesystem implementation.
func WithFS(fs fsops.FS) Option {
	return func(a *Allocator) { a.fs = fs }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Allocator) { a.logger = logger }
}

// WithMaxAttempts sets how many consecutive numbers an allocation tries
// before giving up. Values below 1 keep the default.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithMaxSuffixes sets how many names Carve tries before giving up.
// Values below 1 keep the default.
func WithMaxSuffixes(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxSuffixes = n
		}
	}
}

// New creates an Allocator backed by the real filesystem unless WithFS says
// otherwise.
func New(opts ...Option) *Allocator {
	a := &Allocator{
		fs:          fsops.NewRealFS(),
		logger:      zerolog.Nop(),
		maxAttempts: DefaultMaxAttempts,
		maxSuffixes: DefaultMaxSuffixes,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAllocator = New()

// Allocate creates the next numbered directory using the real filesystem.
// See Allocator.Allocate.
func Allocate(parent, base string, count uint8) (*Dir, error) {
	return defaultAllocator.Allocate(parent, base, count)
}

// ListEntries lists the base series in parent using the real filesystem.
// See Allocator.ListEntries.
func ListEntries(parent, base string) ([]Entry, error) {
	seq, err := defaultAllocator.ListEntries(parent, base)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for entry := range seq {
		entries = append(entries, entry)
	}
	return entries, nil
}

// Allocate creates the next directory of the base series in parent and
// retires older ones so that at most count directories remain.
//
// parent and its ancestors are created when missing. If another process
// takes the candidate number first, the following numbers are tried, up to
// the configured attempt limit.
//
// When retiring old directories fails the new directory is still returned,
// together with a *RetirementError. Every other error returns a nil Dir.
func (a *Allocator) Allocate(parent, base string, count uint8) (*Dir, error) {
	if err := a.fs.ValidateBase(base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: retention count must be at least 1", ErrInvalidInput)
	}

	parent, err := filepath.Abs(parent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent directory: %w", err)
	}
	if err := a.fs.MkdirAll(parent, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	current, found, err := a.maxEntry(parent, base)
	if err != nil {
		return nil, err
	}

	var (
		next      uint16
		retireErr error
	)
	if found {
		retireErr = a.Retire(parent, base, current, count-1)
		var re *RetirementError
		if retireErr != nil && !errors.As(retireErr, &re) {
			return nil, retireErr
		}
		next = current + 1
	}

	dir, err := a.createNext(parent, base, next)
	if err != nil {
		return nil, err
	}
	return dir, retireErr
}

// createNext makes "{base}-{next}" in parent, moving to the following number
// on every collision.
func (a *Allocator) createNext(parent, base string, next uint16) (*Dir, error) {
	var lastErr error
	for i := 0; i < a.maxAttempts; i++ {
		path := filepath.Join(parent, numberedName(base, next))
		err := a.fs.Mkdir(path, dirPerm)
		if err == nil {
			if err := a.updateCurrent(parent, base, path); err != nil {
				return nil, err
			}
			a.logger.Info().Str("path", path).Uint16("number", next).Msg("allocated")
			return a.newDir(path, base, next), nil
		}
		if !fsops.IsExist(err) {
			return nil, fmt.Errorf("failed to create numbered directory: %w", err)
		}
		a.logger.Debug().Str("path", path).Msg("number taken, trying next")
		lastErr = err
		next++
	}
	return nil, fmt.Errorf("%w: no free number for %s in %s after %d attempts, last error: %w",
		ErrCollisionExhausted, base, parent, a.maxAttempts, lastErr)
}

// updateCurrent points "{base}-current" at path. A stale link must go, or it
// would keep pointing at a directory that is about to be retired; creating
// the new link may lose a race with another allocation, which is fine.
func (a *Allocator) updateCurrent(parent, base, path string) error {
	link := filepath.Join(parent, currentName(base))
	if _, err := a.fs.Lstat(link); err == nil {
		if err := a.fs.Remove(link); err != nil && !fsops.IsNotExist(err) {
			return fmt.Errorf("failed to remove previous current link: %w", err)
		}
	}
	if err := a.fs.Symlink(path, link); err != nil {
		a.logger.Debug().Err(err).Str("link", link).Msg("could not update current link")
	}
	return nil
}

// Current returns the target of the "{base}-current" link in parent.
func (a *Allocator) Current(parent, base string) (string, error) {
	if err := a.fs.ValidateBase(base); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	target, err := a.fs.Readlink(filepath.Join(parent, currentName(base)))
	if err != nil {
		return "", fmt.Errorf("failed to read current link: %w", err)
	}
	return target, nil
}

func numberedName(base string, n uint16) string {
	return fmt.Sprintf("%s-%d", base, n)
}

func currentName(base string) string {
	return base + "-" + CurrentSuffix
}
