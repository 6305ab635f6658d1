package testdir

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/danieljhkim/scratchdir/internal/session"
	"github.com/danieljhkim/scratchdir/pkg/numdir"
)

// Session lazily creates one numbered directory and hands it out for the
// lifetime of the process.
type Session struct {
	once   sync.Once
	create func() (*numdir.Dir, error)
	dir    *numdir.Dir
	err    error
}

// NewSession returns a Session whose directory is made by create on first use.
func NewSession(create func() (*numdir.Dir, error)) *Session {
	return &Session{create: create}
}

// Default is the session shared by New, NewAt and ForPackage.
var Default = NewSession(createDefault)

func createDefault() (*numdir.Dir, error) {
	b := NewBuilder(DefaultRoot)
	pid, underGoTest := session.GoTestPID()
	marker := session.NewMarker(session.GoTestPIDFile, nil)
	token := strconv.Itoa(pid)
	if underGoTest {
		b.Reuse(marker.Matches(token))
	}

	dir, err := b.Create()
	if err != nil && !errors.Is(err, numdir.ErrRetirement) {
		return nil, err
	}
	if underGoTest {
		if err := marker.Write(dir.Path(), token); err != nil {
			return nil, err
		}
	}
	return dir, nil
}

// Dir returns the session directory, creating it on the first call.
// Retirement failures are tolerated: the directory is returned with a nil
// error.
func (s *Session) Dir() (*numdir.Dir, error) {
	s.once.Do(func() {
		s.dir, s.err = s.create()
		if s.err != nil && s.dir != nil && errors.Is(s.err, numdir.ErrRetirement) {
			s.err = nil
		}
	})
	return s.dir, s.err
}

// NewAt carves rel inside the session directory and returns its path.
func (s *Session) NewAt(t testing.TB, rel string) string {
	t.Helper()
	dir, err := s.Dir()
	if err != nil {
		t.Fatalf("testdir: failed to create session directory: %v", err)
	}
	path, err := dir.Carve(rel)
	if err != nil {
		t.Fatalf("testdir: failed to create %s: %v", rel, err)
	}
	return path
}

// New carves a directory named after the running test.
func (s *Session) New(t testing.TB) string {
	t.Helper()
	return s.NewAt(t, t.Name())
}

// ForPackage carves a directory shared by the calling package, named after
// its import path with a final "pkg" component.
func (s *Session) ForPackage(t testing.TB) string {
	t.Helper()
	return s.forPackage(t, 2)
}

func (s *Session) forPackage(t testing.TB, skip int) string {
	t.Helper()
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		t.Fatalf("testdir: cannot determine calling package")
	}
	pkg := funcPackage(runtime.FuncForPC(pc).Name())
	if pkg == "" {
		t.Fatalf("testdir: cannot determine calling package")
	}
	return s.NewAt(t, pkg+"/pkg")
}

// funcPackage returns the import path of a fully qualified function name such
// as "example.com/a/b.TestX.func1". Dots in the last path element are escaped
// as %2e by the runtime.
func funcPackage(name string) string {
	slash := strings.LastIndexByte(name, '/')
	dot := strings.IndexByte(name[slash+1:], '.')
	if dot < 0 {
		return ""
	}
	return strings.ReplaceAll(name[:slash+1+dot], "%2e", ".")
}

// New carves a directory named after the running test in the default session.
func New(t testing.TB) string {
	t.Helper()
	return Default.New(t)
}

// NewAt carves rel inside the default session directory.
func NewAt(t testing.TB, rel string) string {
	t.Helper()
	return Default.NewAt(t, rel)
}

// ForPackage carves the calling package's directory in the default session.
func ForPackage(t testing.TB) string {
	t.Helper()
	return Default.forPackage(t, 2)
}

// Path returns the default session directory, creating it if needed.
func Path() (string, error) {
	dir, err := Default.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir.Path(), nil
}
