package numdir

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/scratchdir/internal/fsops/fsopstest"
)

func TestObsolete(t *testing.T) {
	tests := []struct {
		name    string
		number  uint16
		current uint16
		keep    uint8
		want    bool
	}{
		{name: "below window", number: 8, current: 10, keep: 2, want: true},
		{name: "oldest kept", number: 9, current: 10, keep: 2, want: false},
		{name: "current kept", number: 10, current: 10, keep: 2, want: false},
		{name: "racer just ahead", number: 11, current: 10, keep: 2, want: false},
		{name: "racer far ahead", number: 32776, current: 10, keep: 2, want: false},
		{name: "half range ahead is obsolete", number: 32777, current: 10, keep: 2, want: true},
		{name: "keep zero drops current", number: 5, current: 5, keep: 0, want: true},
		{name: "keep zero spares racer", number: 6, current: 5, keep: 0, want: false},
		{name: "wrapped below window", number: 65532, current: 65535, keep: 3, want: true},
		{name: "wrapped oldest kept", number: 65533, current: 65535, keep: 3, want: false},
		{name: "racer past the wrap", number: 0, current: 65535, keep: 3, want: false},
		{name: "racer far past the wrap", number: 32765, current: 65535, keep: 3, want: false},
		{name: "wrapped delete arc start", number: 32766, current: 65535, keep: 3, want: true},
		{name: "window spans the wrap, kept high", number: 65535, current: 1, keep: 3, want: false},
		{name: "window spans the wrap, kept zero", number: 0, current: 1, keep: 3, want: false},
		{name: "window spans the wrap, below", number: 65534, current: 1, keep: 3, want: true},
		{name: "window spans the wrap, racer", number: 2, current: 1, keep: 3, want: false},
		{name: "max keep", number: 0, current: 254, keep: 255, want: false},
		{name: "max keep below", number: 65535, current: 254, keep: 255, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Obsolete(tt.number, tt.current, tt.keep),
				"Obsolete(%d, current=%d, keep=%d)", tt.number, tt.current, tt.keep)
		})
	}
}

func TestObsolete_ArcProperties(t *testing.T) {
	currents := []uint16{0, 1, 2, 100, 254, 255, 32766, 32767, 32768, 65280, 65534, 65535}
	for _, current := range currents {
		for k := 0; k <= 255; k += 17 {
			keep := uint8(k)

			// The keep arc: the last keep numbers ending at current.
			for i := 0; i < int(keep); i++ {
				n := current - uint16(i)
				if Obsolete(n, current, keep) {
					t.Fatalf("Obsolete(%d, current=%d, keep=%d) = true, number is inside the window", n, current, keep)
				}
			}

			// The number right before the window is always retired.
			if n := current - uint16(keep); !Obsolete(n, current, keep) {
				t.Fatalf("Obsolete(%d, current=%d, keep=%d) = false, number precedes the window", n, current, keep)
			}

			// Numbers ahead of current belong to concurrent allocations.
			for _, ahead := range []uint16{1, 2, 255, halfRange - 1} {
				n := current + ahead
				if Obsolete(n, current, keep) {
					t.Fatalf("Obsolete(%d, current=%d, keep=%d) = true, racer %d ahead was retired", n, current, keep, ahead)
				}
			}
		}
	}
}

func mkNumbered(t *testing.T, parent string, numbers ...uint16) {
	t.Helper()
	for _, n := range numbers {
		require.NoError(t, os.MkdirAll(filepath.Join(parent, numberedName("run", n)), 0o755))
	}
}

func numbers(t *testing.T, a *Allocator, parent string) []uint16 {
	t.Helper()
	var ns []uint16
	for _, e := range collect(t, a, parent, "run") {
		ns = append(ns, e.Number)
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i] < ns[j] })
	return ns
}

func TestRetire(t *testing.T) {
	parent := t.TempDir()
	mkNumbered(t, parent, 1, 2, 3, 4, 5)
	require.NoError(t, os.WriteFile(filepath.Join(parent, "run-1", "data.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(parent, "run-2", "deep", "tree"), 0o755))

	a := New()
	require.NoError(t, a.Retire(parent, "run", 5, 2))

	assert.Equal(t, []uint16{4, 5}, numbers(t, a, parent))
}

func TestRetire_KeepZero(t *testing.T) {
	parent := t.TempDir()
	mkNumbered(t, parent, 1, 2, 3)

	a := New()
	require.NoError(t, a.Retire(parent, "run", 3, 0))

	assert.Empty(t, numbers(t, a, parent))
}

func TestRetire_LeavesOtherSeries(t *testing.T) {
	parent := t.TempDir()
	mkNumbered(t, parent, 1, 2)
	require.NoError(t, os.Mkdir(filepath.Join(parent, "walk-1"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(parent, "notes"), 0o755))

	require.NoError(t, New().Retire(parent, "run", 2, 1))

	assert.DirExists(t, filepath.Join(parent, "walk-1"))
	assert.DirExists(t, filepath.Join(parent, "notes"))
	assert.NoDirExists(t, filepath.Join(parent, "run-1"))
	assert.DirExists(t, filepath.Join(parent, "run-2"))
}

func TestRetire_SparesRacerPastWrap(t *testing.T) {
	parent := t.TempDir()
	mkNumbered(t, parent, 65530, 65534, 65535, 0, 1)

	a := New()
	require.NoError(t, a.Retire(parent, "run", 65535, 2))

	assert.Equal(t, []uint16{0, 1, 65534, 65535}, numbers(t, a, parent))
}

func TestPlanRetirement(t *testing.T) {
	parent := t.TempDir()
	mkNumbered(t, parent, 1, 2, 3)

	a := New()
	plan, err := a.PlanRetirement(parent, "run", 3, 1)
	require.NoError(t, err)

	var names []string
	for _, e := range plan {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"run-1", "run-2"}, names)
	assert.Equal(t, []uint16{1, 2, 3}, numbers(t, a, parent), "planning removes nothing")
}

func TestRetire_PartialFailure(t *testing.T) {
	parent := t.TempDir()
	mkNumbered(t, parent, 1, 2, 3, 4)

	ffs := fsopstest.New(nil)
	stuck := filepath.Join(parent, "run-2")
	ffs.Inject(fsopstest.OpRemoveAll, fsopstest.Path(stuck), os.ErrPermission)

	a := New(WithFS(ffs))
	err := a.Retire(parent, "run", 4, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetirement)
	assert.ErrorIs(t, err, os.ErrPermission)

	var re *RetirementError
	require.True(t, errors.As(err, &re))
	require.Len(t, re.Failures, 1)
	assert.Equal(t, stuck, re.Failures[0].Path)
	assert.Contains(t, err.Error(), "1 obsolete directory")

	// The other obsolete entries were still removed.
	assert.Equal(t, []uint16{2, 4}, numbers(t, a, parent))
}

func TestRetire_MissingParent(t *testing.T) {
	err := New().Retire(filepath.Join(t.TempDir(), "missing"), "run", 3, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRetirement)
}
