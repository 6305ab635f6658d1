package fsops

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBase(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		wantError bool
	}{
		{name: "simple", base: "run", wantError: false},
		{name: "with dashes", base: "my-run", wantError: false},
		{name: "with dots", base: "run.v2", wantError: false},
		{name: "hidden", base: ".cache", wantError: false},
		{name: "empty", base: "", wantError: true},
		{name: "current directory", base: ".", wantError: true},
		{name: "parent directory", base: "..", wantError: true},
		{name: "forward slash", base: "run/sub", wantError: true},
		{name: "backslash", base: `run\sub`, wantError: true},
		{name: "absolute", base: "/run", wantError: true},
	}

	fs := NewRealFS()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fs.ValidateBase(tt.base)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPath)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRelPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{name: "single component", path: "logs", wantError: false},
		{name: "nested", path: "a/b/c", wantError: false},
		{name: "trailing slash", path: "a/b/", wantError: false},
		{name: "trailing dot component", path: "a/.", wantError: false},
		{name: "parent reference prefix", path: "../other", wantError: false},
		{name: "empty", path: "", wantError: true},
		{name: "current directory", path: ".", wantError: true},
		{name: "parent directory", path: "..", wantError: true},
		{name: "ends in parent reference", path: "a/..", wantError: true},
		{name: "absolute", path: "/etc/hosts", wantError: true},
	}

	fs := NewRealFS()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fs.ValidateRelPath(tt.path)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateRelPath(%q) error = %v, wantError %v", tt.path, err, tt.wantError)
			}
		})
	}
}

func TestRealFS_Mkdir(t *testing.T) {
	fs := NewRealFS()
	dir := filepath.Join(t.TempDir(), "one")

	require.NoError(t, fs.Mkdir(dir, 0755))

	err := fs.Mkdir(dir, 0755)
	require.Error(t, err)
	assert.True(t, IsExist(err), "second Mkdir should report existence, got %v", err)

	err = fs.Mkdir(filepath.Join(dir, "missing", "child"), 0755)
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestRealFS_Mkdir_SingleWinner(t *testing.T) {
	fs := NewRealFS()
	dir := filepath.Join(t.TempDir(), "contested")

	const racers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fs.Mkdir(dir, 0755); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestRealFS_OpenDir(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, name), 0755))
	}

	t.Run("streams all entries", func(t *testing.T) {
		d, err := fs.OpenDir(tmpDir)
		require.NoError(t, err)
		defer d.Close()

		var names []string
		for {
			entries, err := d.ReadDir(1)
			for _, e := range entries {
				names = append(names, e.Name())
			}
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
		}
		assert.ElementsMatch(t, []string{"a", "b", "c"}, names)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := fs.OpenDir(filepath.Join(tmpDir, "nope"))
		require.Error(t, err)
		assert.True(t, IsNotExist(err))
	})

	t.Run("regular file", func(t *testing.T) {
		file := filepath.Join(tmpDir, "file.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		_, err := fs.OpenDir(file)
		assert.Error(t, err)
	})
}

func TestRealFS_Symlink(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "target")
	link := filepath.Join(tmpDir, "link")
	require.NoError(t, os.Mkdir(target, 0755))

	require.NoError(t, fs.Symlink(target, link))

	got, err := fs.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	info, err := fs.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	err = fs.Symlink(target, link)
	assert.True(t, IsExist(err))

	// Dangling links are still visible to Lstat and Exists
	require.NoError(t, os.Remove(target))
	exists, err := fs.Exists(link)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, fs.Remove(link))
	exists, err = fs.Exists(link)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRealFS_RemoveAll(t *testing.T) {
	fs := NewRealFS()
	root := filepath.Join(t.TempDir(), "tree")
	require.NoError(t, fs.MkdirAll(filepath.Join(root, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "f.txt"), []byte("x"), 0644))

	require.NoError(t, fs.RemoveAll(root))
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))

	// Already gone counts as success
	assert.NoError(t, fs.RemoveAll(root))
}

func TestRealFS_AtomicWrite(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()

	t.Run("creates parents and writes", func(t *testing.T) {
		path := filepath.Join(tmpDir, "nested", "marker")
		require.NoError(t, fs.AtomicWrite(path, []byte("token"), 0644))

		data, err := fs.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "token", string(data))
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "overwrite")
		require.NoError(t, fs.AtomicWrite(path, []byte("old"), 0644))
		require.NoError(t, fs.AtomicWrite(path, []byte("new"), 0644))

		data, err := fs.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		entries, err := os.ReadDir(tmpDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".scratchdir-tmp-")
		}
	})
}

func TestRealFS_Exists(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()

	exists, err := fs.Exists(tmpDir)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = fs.Exists(filepath.Join(tmpDir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}
