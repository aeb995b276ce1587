package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds the daemon configuration.
type Config struct {
	// BorderWidth is the frame border drawn around floating windows, in
	// pixels.
	BorderWidth int `yaml:"border_width"`
	// BorderColor is the frame border color as a hex string, e.g. "#5294e2".
	BorderColor string `yaml:"border_color"`
	// Gap is the spacing between tiled windows, in pixels.
	Gap int `yaml:"gap"`
	// Modifier is the key held for the float toggle and for pointer drags.
	// One of: mod1, mod4.
	Modifier string `yaml:"modifier"`
	// MinDragSize is the smallest width and height a pointer resize may
	// shrink a frame to, in pixels.
	MinDragSize int `yaml:"min_drag_size"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	LogFile  string `yaml:"log_file"`  // empty = stderr
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BorderWidth: 2,
		BorderColor: "#5294e2",
		Gap:         8,
		Modifier:    "mod4",
		MinDragSize: 16,
		LogLevel:    "info",
	}
}

func (c *Config) validate() error {
	if c.BorderWidth < 0 {
		return fmt.Errorf("border_width must be >= 0, got %d", c.BorderWidth)
	}
	if c.Gap < 0 {
		return fmt.Errorf("gap must be >= 0, got %d", c.Gap)
	}
	if c.MinDragSize < 1 {
		return fmt.Errorf("min_drag_size must be >= 1, got %d", c.MinDragSize)
	}
	switch c.Modifier {
	case "mod1", "mod4":
	default:
		return fmt.Errorf("unsupported modifier %q (want mod1 or mod4)", c.Modifier)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level %q", c.LogLevel)
	}
	if _, err := ParseColor(c.BorderColor); err != nil {
		return err
	}
	return nil
}

// ParseColor converts a "#rrggbb" or "0xrrggbb" hex string to a pixel value.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(hex) != 6 {
		return 0, fmt.Errorf("invalid color %q (want #rrggbb)", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint32(v), nil
}
