// Package config provides configuration loading for imcol.
// It handles YAML configuration files, environment overrides and default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v9"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/imcol/pkg/imcol"
	"github.com/ironsheep/imcol/pkg/surf"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Feature extraction parameters
	Features struct {
		// MaxPoints caps the number of descriptors per image
		MaxPoints int `yaml:"maxPoints"`

		// Octaves is the number of detector octaves
		Octaves int `yaml:"octaves"`

		// Scales is the number of filter sizes per octave
		Scales int `yaml:"scales"`

		// InitialStep is the sampling step of the first octave
		InitialStep int `yaml:"initialStep"`

		// Threshold is the minimum Hessian response of an interest point
		Threshold float64 `yaml:"threshold"`

		// Reference is the channel whose descriptors are appended; empty disables it
		Reference string `yaml:"reference"`
	} `yaml:"features"`

	// Composite parameters
	Composite struct {
		// Channels maps red, green and blue to channel names; empty entries stay black
		Channels []string `yaml:"channels"`

		// Plane is "max", "central" or a plane index
		Plane string `yaml:"plane"`

		// Palette optionally tints the channels with hex colours instead of red, green, blue
		Palette []string `yaml:"palette,omitempty"`
	} `yaml:"composite"`

	Preview struct {
		// Scale resizes written previews; 1 keeps the original size
		Scale float64 `yaml:"scale"`
	} `yaml:"preview"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// overrides are environment variables applied on top of the file.
type overrides struct {
	LogLevel  string `env:"IMCOL_LOG_LEVEL"`
	Reference string `env:"IMCOL_REFERENCE"`
	MaxPoints int    `env:"IMCOL_MAX_POINTS"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	opts := surf.DefaultOptions()
	cfg.Features.MaxPoints = opts.MaxPoints
	cfg.Features.Octaves = opts.Octaves
	cfg.Features.Scales = opts.Scales
	cfg.Features.InitialStep = opts.InitialStep
	cfg.Features.Threshold = opts.Threshold
	cfg.Features.Reference = imcol.DefaultReference

	cfg.Composite.Channels = append([]string(nil), imcol.DefaultChannels[:]...)
	cfg.Composite.Plane = "central"

	cfg.Preview.Scale = 1.0
	cfg.Log.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist, the defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
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
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.Reference != "" {
		c.Features.Reference = o.Reference
	}
	if o.MaxPoints != 0 {
		c.Features.MaxPoints = o.MaxPoints
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks the values that cannot be caught at parse time.
func (c *Config) Validate() error {
	if err := c.SurfOptions().Validate(); err != nil {
		return err
	}
	if len(c.Composite.Channels) > 3 {
		return fmt.Errorf("composite takes at most 3 channels, got %d", len(c.Composite.Channels))
	}
	if len(c.Composite.Palette) > 0 && len(c.Composite.Palette) != len(c.Composite.Channels) {
		return fmt.Errorf("palette has %d colours for %d channels", len(c.Composite.Palette), len(c.Composite.Channels))
	}
	if _, err := c.PlaneSelector(); err != nil {
		return err
	}
	if _, err := c.Palette(); err != nil {
		return err
	}
	if c.Preview.Scale <= 0 {
		return fmt.Errorf("preview scale must be positive, got %g", c.Preview.Scale)
	}
	return nil
}

// SurfOptions returns the feature extraction options.
func (c *Config) SurfOptions() surf.Options {
	return surf.Options{
		MaxPoints:   c.Features.MaxPoints,
		Octaves:     c.Features.Octaves,
		Scales:      c.Features.Scales,
		InitialStep: c.Features.InitialStep,
		Threshold:   c.Features.Threshold,
	}
}

// PlaneSelector parses Composite.Plane.
func (c *Config) PlaneSelector() (imcol.PlaneSelector, error) {
	return imcol.ParsePlane(c.Composite.Plane)
}

// CompositeChannels returns Composite.Channels padded to red, green, blue.
func (c *Config) CompositeChannels() [3]string {
	var out [3]string
	copy(out[:], c.Composite.Channels)
	return out
}

// Palette parses Composite.Palette. It returns nil when no palette is set.
func (c *Config) Palette() ([]colorful.Color, error) {
	if len(c.Composite.Palette) == 0 {
		return nil, nil
	}
	colors := make([]colorful.Color, len(c.Composite.Palette))
	for i, hex := range c.Composite.Palette {
		col, err := colorful.Hex(strings.TrimSpace(hex))
		if err != nil {
			return nil, fmt.Errorf("invalid palette colour %q: %w", hex, err)
		}
		colors[i] = col
	}
	return colors, nil
}

// ChannelColors pairs the composite channels with the palette, for palette
// composites. It returns nil when no palette is set.
func (c *Config) ChannelColors() ([]imcol.ChannelColor, error) {
	colors, err := c.Palette()
	if err != nil || colors == nil {
		return nil, err
	}
	out := make([]imcol.ChannelColor, len(colors))
	for i, col := range colors {
		out[i] = imcol.ChannelColor{Channel: c.Composite.Channels[i], Color: col}
	}
	return out, nil
}
