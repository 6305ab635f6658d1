// Package config manages scratchdir configuration.
//
// Settings come from three layers, each overriding the previous one: built-in
// defaults, an optional YAML file and SCRATCHDIR_* environment variables. The
// CLI applies its flags on top of the result.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/scratchdir/internal/fsops"
)

// Environment variables recognised by Load.
const (
	EnvConfig = "SCRATCHDIR_CONFIG"
	EnvRoot   = "SCRATCHDIR_ROOT"
	EnvBase   = "SCRATCHDIR_BASE"
	EnvCount  = "SCRATCHDIR_COUNT"
)

const (
	DefaultBase        = "run"
	DefaultCount       = 8
	DefaultMaxAttempts = 16
	DefaultMaxSuffixes = math.MaxUint16
	DefaultLogLevel    = "warn"

	rootPrefix = "scratchdir-of-"
)

// ErrInvalidConfig is returned when a setting is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings for allocating numbered directories.
type Config struct {
	// Root is the parent directory holding the numbered directories
	// (default: <tmp>/scratchdir-of-<user>)
	Root string `yaml:"root" json:"root"`

	// Base is the name prefix of the numbered directories
	Base string `yaml:"base" json:"base"`

	// Count is how many numbered directories are kept, the new one included
	Count int `yaml:"count" json:"count"`

	// MaxAttempts bounds the numbers tried by one allocation
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// MaxSuffixes bounds the names tried when carving a subdirectory
	MaxSuffixes int `yaml:"max_suffixes" json:"max_suffixes"`

	// LogLevel is a zerolog level name
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root:        DefaultRoot(),
		Base:        DefaultBase,
		Count:       DefaultCount,
		MaxAttempts: DefaultMaxAttempts,
		MaxSuffixes: DefaultMaxSuffixes,
		LogLevel:    DefaultLogLevel,
	}
}

// DefaultRoot returns <tmp>/scratchdir-of-<user>.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), rootPrefix+Username())
}

// Username returns the name of the current user, falling back to $USER and
// finally "unknown".
func Username() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Windows reports DOMAIN\user.
		name := u.Username
		if i := strings.LastIndexByte(name, '\\'); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return "unknown"
}

// DefaultPath returns the config file location.
// The path can be overridden with SCRATCHDIR_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "scratchdir", "config.yaml"), nil
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. An empty path means DefaultPath. A missing file is
// not an error.
func Load(fs fsops.FS, path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()

	data, err := fs.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case fsops.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvBase); v != "" {
		c.Base = v
	}
	if v := os.Getenv(EnvCount); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvCount, v)
		}
		c.Count = n
	}
	return nil
}

// Validate checks that every setting is in range.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("%w: root must not be empty", ErrInvalidConfig)
	}
	if err := fsops.ValidateBase(c.Base); err != nil {
		return fmt.Errorf("%w: base: %w", ErrInvalidConfig, err)
	}
	if c.Count < 1 || c.Count > math.MaxUint8 {
		return fmt.Errorf("%w: count must be between 1 and %d, got %d", ErrInvalidConfig, math.MaxUint8, c.Count)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.MaxSuffixes < 1 {
		return fmt.Errorf("%w: max_suffixes must be positive, got %d", ErrInvalidConfig, c.MaxSuffixes)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level means DefaultLogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	name := c.LogLevel
	if name == "" {
		name = DefaultLogLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	return lvl, nil
}

// Save writes the config as YAML to path, creating parent directories.
func (c *Config) Save(fs fsops.FS, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := fs.AtomicWrite(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
