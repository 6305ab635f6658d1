// Package session stores small token files inside numbered directories and
// builds reuse predicates from them.
//
// A token identifies the run that created a directory: a random UUID for a
// CLI session, or the process ID of the `go` tool for a `go test` run. Any
// later process presenting the same token reuses the directory instead of
// allocating a new one.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/danieljhkim/scratchdir/internal/fsops"
	"github.com/danieljhkim/scratchdir/pkg/numdir"
)

const (
	// GoTestPIDFile holds the PID of the `go` process running the tests.
	GoTestPIDFile = "go-test-pid"

	// TokenFile holds a CLI session token.
	TokenFile = "session-token"
)

// Marker reads and writes a single token file inside numbered directories.
type Marker struct {
	name string
	fs   fsops.FS
}

// NewMarker creates a Marker for the file name within each directory.
func NewMarker(name string, fs fsops.FS) *Marker {
	if fs == nil {
		fs = fsops.NewRealFS()
	}
	return &Marker{name: name, fs: fs}
}

// Name returns the marker file name.
func (m *Marker) Name() string {
	return m.name
}

func (m *Marker) path(dir string) string {
	return filepath.Join(dir, m.name)
}

// Write stores token in dir unless a marker is already present.
func (m *Marker) Write(dir, token string) error {
	p := m.path(dir)
	exists, err := m.fs.Exists(p)
	if err != nil {
		return fmt.Errorf("failed to check marker: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.fs.AtomicWrite(p, []byte(token+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}

// Read returns the token stored in dir.
func (m *Marker) Read(dir string) (string, error) {
	data, err := m.fs.ReadFile(m.path(dir))
	if err != nil {
		return "", fmt.Errorf("failed to read marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Matches returns a predicate accepting directories whose marker holds token.
// An empty token never matches.
func (m *Marker) Matches(token string) numdir.ReusePredicate {
	return numdir.ReuseFunc(func(dir string) bool {
		if token == "" {
			return false
		}
		got, err := m.Read(dir)
		return err == nil && got == token
	})
}

// NewToken returns a fresh random session token.
func NewToken() string {
	return uuid.NewString()
}

// ValidToken reports whether s looks like a token produced by NewToken.
func ValidToken(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// GoTestPID returns the PID of the `go` process when the current process is a
// test binary started by `go test`.
func GoTestPID() (int, bool) {
	return goTestPID(os.Args[0], os.Getppid(), runtime.GOOS, os.ReadFile)
}

func goTestPID(arg0 string, ppid int, goos string, readFile func(string) ([]byte, error)) (int, bool) {
	if !strings.HasSuffix(arg0, ".test") && !strings.HasSuffix(arg0, ".test.exe") {
		return 0, false
	}
	if ppid <= 1 {
		return 0, false
	}
	if goos != "linux" {
		// No cheap way to inspect the parent; a test binary is almost
		// always run by the go tool.
		return ppid, true
	}
	comm, err := readFile(filepath.Join("/proc", strconv.Itoa(ppid), "comm"))
	if err != nil {
		return 0, false
	}
	if strings.TrimSpace(string(comm)) != "go" {
		return 0, false
	}
	return ppid, true
}
