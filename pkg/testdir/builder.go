// Package testdir gives tests a fresh numbered directory per run.
//
// All tests of one `go test` invocation share a single numbered directory
// under <tmp>/testdir-of-<user>, even across the separate test binaries of
// different packages. Each test then carves its own subdirectory:
//
//	func TestSomething(t *testing.T) {
//		dir := testdir.New(t) // .../testdir-3/TestSomething
//		...
//	}
//
// Directories are left in place after the run for inspection and the oldest
// runs are retired automatically. The newest run is always reachable through
// the testdir-current symlink.
package testdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/scratchdir/internal/config"
	"github.com/danieljhkim/scratchdir/internal/fsops"
	"github.com/danieljhkim/scratchdir/pkg/numdir"
)

const (
	// DefaultRoot is the prefix of the default root directory name.
	DefaultRoot = "testdir"

	// DefaultCount is the number of numbered directories kept by default.
	DefaultCount uint8 = 8
)

// Builder configures where and how a numbered directory is created.
//
// The parent directory is made of a temporary directory location and a root
// name, by default os.TempDir() and "testdir-of-<user>". SetParent replaces
// both with an explicit path.
type Builder struct {
	parent string
	base   string
	count  uint8
	reuse  numdir.ReusePredicate
	alloc  *numdir.Allocator
	fs     fsops.FS
}

// NewBuilder creates a Builder for the base series.
func NewBuilder(base string) *Builder {
	return &Builder{
		parent: filepath.Join(os.TempDir(), DefaultRoot+"-of-"+config.Username()),
		base:   base,
		count:  DefaultCount,
		fs:     fsops.NewRealFS(),
	}
}

// Base resets the name prefix of the numbered directories.
func (b *Builder) Base(base string) *Builder {
	b.base = base
	return b
}

// Root sets the root directory name inside the temporary directory location.
func (b *Builder) Root(name string) *Builder {
	b.parent = filepath.Join(filepath.Dir(b.parent), name)
	return b
}

// UserRoot sets the root to prefix followed by the user name.
func (b *Builder) UserRoot(prefix string) *Builder {
	return b.Root(prefix + config.Username())
}

// TmpdirProvider moves the root into the directory returned by provider.
func (b *Builder) TmpdirProvider(provider func() string) *Builder {
	root := filepath.Base(b.parent)
	b.parent = filepath.Join(provider(), root)
	return b
}

// SetParent sets the parent directory directly, bypassing the root.
func (b *Builder) SetParent(path string) *Builder {
	b.parent = path
	return b
}

// Count sets how many numbered directories are kept, the new one included.
func (b *Builder) Count(n uint8) *Builder {
	b.count = n
	return b
}

// Reuse makes Create return an existing directory accepted by pred.
func (b *Builder) Reuse(pred numdir.ReusePredicate) *Builder {
	b.reuse = pred
	return b
}

// ReuseFunc is Reuse for a plain function.
func (b *Builder) ReuseFunc(f func(path string) bool) *Builder {
	return b.Reuse(numdir.ReuseFunc(f))
}

// DisableReuse undoes any previous Reuse or ReuseFunc.
func (b *Builder) DisableReuse() *Builder {
	b.reuse = nil
	return b
}

// Allocator sets the allocator used by Create.
func (b *Builder) Allocator(a *numdir.Allocator) *Builder {
	b.alloc = a
	return b
}

// Parent returns the directory in which Create places numbered directories.
func (b *Builder) Parent() string {
	return b.parent
}

// Create returns a reused directory when the reuse predicate accepts one, and
// allocates a new numbered directory otherwise.
func (b *Builder) Create() (*numdir.Dir, error) {
	if err := b.fs.MkdirAll(b.parent, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	alloc := b.alloc
	if alloc == nil {
		alloc = numdir.New()
	}
	dir, _, err := alloc.AllocateOrReuse(b.parent, b.base, b.count, b.reuse)
	return dir, err
}
