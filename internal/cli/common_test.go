package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/scratchdir/internal/config"
)

func TestFormatJSON(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"simple map", map[string]string{"key": "value"}},
		{"empty map", map[string]string{}},
		{"array", []string{"a", "b", "c"}},
		{"dir info", dirInfo{Path: "/tmp/run-1", Base: "run", Number: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatJSON(tt.input)
			require.NoError(t, err)

			var v any
			assert.NoError(t, json.Unmarshal([]byte(got), &v), "formatJSON() produced invalid JSON: %s", got)
		})
	}
}

func TestFormatError(t *testing.T) {
	got := FormatError(os.ErrNotExist)
	assert.Contains(t, got, "Error:")
	assert.Contains(t, got, os.ErrNotExist.Error())
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputJSON(&buf, dirInfo{Path: "/x/run-3", Base: "run", Number: 3, Reused: true}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "/x/run-3", got["path"])
	assert.Equal(t, float64(3), got["number"])
	assert.Equal(t, true, got["reused"])
	assert.NotContains(t, got, "current", "false flags are omitted")
}

func TestPrintFunctions(t *testing.T) {
	var out bytes.Buffer

	PrintSuccess(&out, "Success message")
	PrintWarning(&out, "Warning message")
	PrintError(&out, "Error message")
	PrintInfo(&out, "Info message")
	PrintLabelValue(&out, "Label", "value")
	PrintList(&out, []string{"one", "two"}, 1)
	PrintEmptyState(&out, "Nothing here")

	s := out.String()
	for _, want := range []string{"Success message", "Warning message", "Error message", "Info message", "Label", "one", "two", "Nothing here"} {
		assert.Contains(t, s, want)
	}
}

func TestPrintTable(t *testing.T) {
	var out bytes.Buffer
	PrintTable(&out, []string{"NUMBER", "NAME"}, [][]string{{"10", "run-10"}, {"9", "run-9"}})

	s := out.String()
	assert.Contains(t, s, "NUMBER")
	assert.Contains(t, s, "------")
	assert.Contains(t, s, "run-10")

	out.Reset()
	PrintTable(&out, []string{"NUMBER"}, nil)
	assert.Empty(t, out.String(), "empty tables print nothing")
}

func TestPrintCount(t *testing.T) {
	assert.Equal(t, "1 directory", PrintCount(1, "directory", "directories"))
	assert.Equal(t, "0 directories", PrintCount(0, "directory", "directories"))
	assert.Equal(t, "3 directories", PrintCount(3, "directory", "directories"))
}

func TestNewLogger(t *testing.T) {
	t.Cleanup(func() { verbose = false })
	cfg := config.Default()

	var buf bytes.Buffer
	verbose = false
	logger := newLogger(&buf, cfg)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	verbose = true
	logger = newLogger(&buf, cfg)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	logger.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestAppCount(t *testing.T) {
	a := &app{cfg: config.Default()}

	n, err := a.count(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(config.DefaultCount), n)

	n, err = a.count(3)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), n)

	_, err = a.count(256)
	assert.Error(t, err)
	_, err = a.count(-1)
	assert.Error(t, err)
}
