package numdir

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_Concurrent(t *testing.T) {
	parent := t.TempDir()
	const workers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		dirs []*Dir
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate allocators share nothing, like separate processes.
			dir, err := New().Allocate(parent, "run", 255)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			dirs = append(dirs, dir)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, dirs, workers)

	seen := make(map[uint16]bool)
	for _, d := range dirs {
		assert.False(t, seen[d.Number()], "number %d handed out twice", d.Number())
		seen[d.Number()] = true
		assert.DirExists(t, d.Path())
	}

	target := readCurrent(t, parent, "run")
	assert.Contains(t, filepath.Base(target), "run-")
}

func TestAllocate_ConcurrentWithRetirement(t *testing.T) {
	parent := t.TempDir()
	const (
		workers = 6
		rounds  = 5
		count   = 3
	)

	var wg sync.WaitGroup
	errCh := make(chan error, workers*rounds)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := New()
			for r := 0; r < rounds; r++ {
				if _, err := a.Allocate(parent, "run", count); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		// Racing retirements may find a directory half removed by someone
		// else; those are reported but never fail the allocation itself.
		assert.ErrorIs(t, err, ErrRetirement)
	}

	assert.Less(t, len(numbers(t, New(), parent)), workers*rounds, "obsolete directories were retired")
}

func TestCarve_Concurrent(t *testing.T) {
	dir := newTestDir(t)
	const workers = 16

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		paths = make(map[string]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := dir.Carve("shared/job")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			paths[p] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, paths, workers, "every carve returns a distinct directory")
	for p := range paths {
		assert.DirExists(t, p)
	}
}
