package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/scratchdir/internal/config"
	"github.com/danieljhkim/scratchdir/internal/fsops"
	"github.com/danieljhkim/scratchdir/pkg/numdir"
)

// envSession names the variable holding the session token used by new.
const envSession = "SCRATCHDIR_SESSION"

// app bundles what a command needs to touch the numbered directories.
type app struct {
	cfg    *config.Config
	fs     fsops.FS
	alloc  *numdir.Allocator
	logger zerolog.Logger
}

// loadConfig loads the config file and environment, then applies global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(fsops.NewRealFS(), configPath)
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	if baseName != "" {
		cfg.Base = baseName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates a console logger on w at the configured level.
func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	lvl, err := cfg.Level()
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// newApp creates an app with real implementations of all dependencies.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	fs := fsops.NewRealFS()
	logger := newLogger(cmd.ErrOrStderr(), cfg)
	alloc := numdir.New(
		numdir.WithFS(fs),
		numdir.WithLogger(logger),
		numdir.WithMaxAttempts(cfg.MaxAttempts),
		numdir.WithMaxSuffixes(cfg.MaxSuffixes),
	)

	return &app{cfg: cfg, fs: fs, alloc: alloc, logger: logger}, nil
}

// count returns n when it is set and the configured count otherwise.
func (a *app) count(n int) (uint8, error) {
	if n == 0 {
		n = a.cfg.Count
	}
	if n < 1 || n > 255 {
		return 0, fmt.Errorf("%w: count must be between 1 and 255, got %d", numdir.ErrInvalidInput, n)
	}
	return uint8(n), nil
}

// formatJSON formats a value as JSON.
func formatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatError formats an error for display.
func FormatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON writes a value as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dirInfo is the JSON view of a numbered directory.
type dirInfo struct {
	Path    string `json:"path"`
	Base    string `json:"base"`
	Number  uint16 `json:"number"`
	Current bool   `json:"current,omitempty"`
	Reused  bool   `json:"reused,omitempty"`
}

func newDirInfo(d *numdir.Dir) dirInfo {
	return dirInfo{Path: d.Path(), Base: d.Base(), Number: d.Number()}
}
