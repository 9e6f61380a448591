package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// RefreshConfig holds the refresh policy thresholds. The defaults are
// empirical: short enough that a finished burst shows up without a visible
// lag, long enough that a scrolling burst is not redrawn line by line.
type RefreshConfig struct {
	Quiescence   time.Duration // idle time after pty output before redrawing
	BurstCap     time.Duration // longest a sustained burst may stay undrawn
	PollInterval time.Duration // wait timeout while a redraw is pending
}

// Config holds the application configuration
type Config struct {
	Paths       *Paths
	Term        string   // TERM for the child; empty means inherit
	DisplayTerm string   // TERM used to drive the real display; empty means inherit
	DebugFile   string   // debug log destination; empty discards diagnostics
	LogLevel    string   // debug, info, warn, error
	Command     []string // command and arguments; empty means $SHELL
	Mirror      bool     // render with columns mirrored
	Refresh     RefreshConfig
	Palette     []string // optional 16 #rrggbb overrides for the reference colors
	BufferSize  int      // pty read aggregation capacity in bytes
}

// DefaultConfig returns the default configuration
func DefaultConfig() (*Config, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return nil, err
	}

	return &Config{
		Paths:    paths,
		LogLevel: "debug",
		Mirror:   true,
		Refresh: RefreshConfig{
			Quiescence:   10 * time.Millisecond,
			BurstCap:     300 * time.Millisecond,
			PollInterval: 5 * time.Millisecond,
		},
		BufferSize: 8 * 1024,
	}, nil
}

// fileConfig is the on-disk shape. Pointers distinguish "unset" from zero.
type fileConfig struct {
	Term        *string  `json:"term,omitempty"`
	DisplayTerm *string  `json:"display_term,omitempty"`
	DebugFile   *string  `json:"debug_file,omitempty"`
	LogLevel    *string  `json:"log_level,omitempty"`
	Command     []string `json:"command,omitempty"`
	Mirror      *bool    `json:"mirror,omitempty"`
	Refresh     struct {
		Quiescence   *string `json:"quiescence,omitempty"`
		BurstCap     *string `json:"burst_cap,omitempty"`
		PollInterval *string `json:"poll_interval,omitempty"`
	} `json:"refresh"`
	Palette    []string `json:"palette,omitempty"`
	BufferSize *int     `json:"buffer_size,omitempty"`
}

// Load loads config overrides from path, or from ~/.ncte/config.json when
// path is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.Paths.ConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var user fileConfig
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.apply(&user); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) apply(user *fileConfig) error {
	if user.Term != nil {
		c.Term = *user.Term
	}
	if user.DisplayTerm != nil {
		c.DisplayTerm = *user.DisplayTerm
	}
	if user.DebugFile != nil {
		c.DebugFile = *user.DebugFile
	}
	if user.LogLevel != nil {
		c.LogLevel = *user.LogLevel
	}
	if len(user.Command) > 0 {
		c.Command = user.Command
	}
	if user.Mirror != nil {
		c.Mirror = *user.Mirror
	}
	if len(user.Palette) > 0 {
		c.Palette = user.Palette
	}
	if user.BufferSize != nil {
		c.BufferSize = *user.BufferSize
	}

	durations := []struct {
		name string
		raw  *string
		dst  *time.Duration
	}{
		{"refresh.quiescence", user.Refresh.Quiescence, &c.Refresh.Quiescence},
		{"refresh.burst_cap", user.Refresh.BurstCap, &c.Refresh.BurstCap},
		{"refresh.poll_interval", user.Refresh.PollInterval, &c.Refresh.PollInterval},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// Validate rejects settings the scheduler cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Refresh.Quiescence <= 0 {
		errs = append(errs, fmt.Errorf("quiescence must be positive, got %v", c.Refresh.Quiescence))
	}
	if c.Refresh.BurstCap <= 0 {
		errs = append(errs, fmt.Errorf("burst cap must be positive, got %v", c.Refresh.BurstCap))
	}
	if c.Refresh.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %v", c.Refresh.PollInterval))
	}
	if c.Refresh.BurstCap < c.Refresh.Quiescence {
		errs = append(errs, fmt.Errorf("burst cap %v is shorter than quiescence %v", c.Refresh.BurstCap, c.Refresh.Quiescence))
	}
	if n := len(c.Palette); n != 0 && n != 16 {
		errs = append(errs, fmt.Errorf("palette needs 16 colors, got %d", n))
	}
	if c.BufferSize < 1024 {
		errs = append(errs, fmt.Errorf("buffer size must be at least 1024 bytes, got %d", c.BufferSize))
	}
	return errors.Join(errs...)
}
