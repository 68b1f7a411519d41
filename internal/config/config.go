package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/parfs/internal/filter"
)

// Config represents the optional parfs configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. Nil means unset.
type DefaultsConfig struct {
	Workers          *int    `toml:"workers"`
	SkipIdentical    *bool   `toml:"skip_identical"`
	DeleteMismatched *bool   `toml:"delete_mismatched"`
	LargeFile        *string `toml:"large_file"`
	BWLimit          *string `toml:"bwlimit"`
	ProgressInterval *string `toml:"progress_interval"`
}

// LargeFileBytes parses large_file. ok is false when it is unset.
func (d DefaultsConfig) LargeFileBytes() (n int64, ok bool, err error) {
	return parseSize("large_file", d.LargeFile)
}

// BWLimitBytes parses bwlimit in bytes per second. ok is false when it is
// unset.
func (d DefaultsConfig) BWLimitBytes() (n int64, ok bool, err error) {
	return parseSize("bwlimit", d.BWLimit)
}

// ProgressEvery parses progress_interval. ok is false when it is unset.
func (d DefaultsConfig) ProgressEvery() (time.Duration, bool, error) {
	if d.ProgressInterval == nil {
		return 0, false, nil
	}
	v, err := time.ParseDuration(*d.ProgressInterval)
	if err != nil {
		return 0, false, fmt.Errorf("progress_interval: %w", err)
	}
	if v <= 0 {
		return 0, false, fmt.Errorf("progress_interval: must be positive, got %s", v)
	}
	return v, true, nil
}

// Validate checks every set value without applying it.
func (d DefaultsConfig) Validate() error {
	var errs []error
	if d.Workers != nil && *d.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers: must be positive, got %d", *d.Workers))
	}
	if _, _, err := d.LargeFileBytes(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := d.BWLimitBytes(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := d.ProgressEvery(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseSize(key string, s *string) (int64, bool, error) {
	if s == nil {
		return 0, false, nil
	}
	n, err := filter.ParseSize(*s)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "parfs", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// LoadFile reads an explicit config file. Unlike Load, a missing file is an
// error, and so are unknown keys and invalid values.
func LoadFile(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Defaults.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
