// Package fsopstest provides an fsops.FS wrapper that injects failures, used
// to exercise races and error paths that a real filesystem rarely produces.
package fsopstest

import (
	"os"
	"sync"

	"github.com/danieljhkim/scratchdir/internal/fsops"
)

// Operation names accepted by Inject.
const (
	OpMkdir     = "mkdir"
	OpMkdirAll  = "mkdirall"
	OpOpenDir   = "opendir"
	OpLstat     = "lstat"
	OpSymlink   = "symlink"
	OpRemove    = "remove"
	OpRemoveAll = "removeall"
	OpWrite     = "write"
)

type fault struct {
	op    string
	match func(path string) bool
	err   error
	// remaining is the number of times the fault fires; negative means always.
	remaining int
}

// FaultFS delegates to an inner FS and fails selected calls.
type FaultFS struct {
	fsops.FS

	mu     sync.Mutex
	faults []*fault
	calls  map[string][]string
}

// New wraps inner. A nil inner uses the real filesystem.
func New(inner fsops.FS) *FaultFS {
	if inner == nil {
		inner = fsops.NewRealFS()
	}
	return &FaultFS{FS: inner, calls: make(map[string][]string)}
}

// Inject makes every call of op whose path satisfies match return err.
func (f *FaultFS) Inject(op string, match func(path string) bool, err error) {
	f.InjectN(op, match, err, -1)
}

// InjectN is like Inject but the fault fires at most n times.
func (f *FaultFS) InjectN(op string, match func(path string) bool, err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, &fault{op: op, match: match, err: err, remaining: n})
}

// Path matches exactly one path.
func Path(p string) func(string) bool {
	return func(candidate string) bool { return candidate == p }
}

// Any matches every path.
func Any(string) bool { return true }

// Calls returns the paths passed to op, in call order.
func (f *FaultFS) Calls(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[op]...)
}

func (f *FaultFS) check(op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op] = append(f.calls[op], path)
	for _, flt := range f.faults {
		if flt.op != op || flt.remaining == 0 || !flt.match(path) {
			continue
		}
		if flt.remaining > 0 {
			flt.remaining--
		}
		return &os.PathError{Op: op, Path: path, Err: flt.err}
	}
	return nil
}

func (f *FaultFS) Mkdir(path string, perm os.FileMode) error {
	if err := f.check(OpMkdir, path); err != nil {
		return err
	}
	return f.FS.Mkdir(path, perm)
}

func (f *FaultFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultFS) OpenDir(path string) (fsops.DirReader, error) {
	if err := f.check(OpOpenDir, path); err != nil {
		return nil, err
	}
	return f.FS.OpenDir(path)
}

func (f *FaultFS) Lstat(path string) (os.FileInfo, error) {
	if err := f.check(OpLstat, path); err != nil {
		return nil, err
	}
	return f.FS.Lstat(path)
}

func (f *FaultFS) Symlink(oldname, newname string) error {
	if err := f.check(OpSymlink, newname); err != nil {
		return err
	}
	return f.FS.Symlink(oldname, newname)
}

func (f *FaultFS) Remove(path string) error {
	if err := f.check(OpRemove, path); err != nil {
		return err
	}
	return f.FS.Remove(path)
}

func (f *FaultFS) RemoveAll(path string) error {
	if err := f.check(OpRemoveAll, path); err != nil {
		return err
	}
	return f.FS.RemoveAll(path)
}

func (f *FaultFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := f.check(OpWrite, path); err != nil {
		return err
	}
	return f.FS.AtomicWrite(path, data, perm)
}
