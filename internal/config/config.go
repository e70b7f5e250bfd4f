package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"citeclust/internal/classify"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeField = "field"
	ModeTopic = "topic"
)

// Preset pairs an oracle resolution with a minimum cluster size.
type Preset struct {
	Resolution float64 `yaml:"resolution"`
	NMin       int     `yaml:"nmin"`
}

type Config struct {
	Clustering struct {
		Mode        string `yaml:"mode"` // "field" or "topic"
		Field       Preset `yaml:"field"`
		Topic       Preset `yaml:"topic"`
		WorkerCount int    `yaml:"worker_count"` // <= 0 means one per CPU
	} `yaml:"clustering"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	// Environment overrides; they apply to whichever preset Params resolves.
	resolution *float64
	nmin       *int
}

// Params are the resolved settings for one consolidation pass.
type Params struct {
	Mode        string
	Resolution  float64
	NMin        int
	WorkerCount int
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Clustering.Mode = ModeField
	cfg.Clustering.Field = Preset{Resolution: 0.0001, NMin: 100}
	cfg.Clustering.Topic = Preset{Resolution: 0.001, NMin: 10}
	cfg.Storage.Path = "citeclust.db"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config over defaults
	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if mode := os.Getenv("CITECLUST_MODE"); mode != "" {
		c.Clustering.Mode = mode
	}
	if path := os.Getenv("CITECLUST_DB"); path != "" {
		c.Storage.Path = path
	}

	if v := os.Getenv("CITECLUST_RESOLUTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CITECLUST_RESOLUTION: %w", err)
		}
		c.resolution = &f
	}
	if v := os.Getenv("CITECLUST_NMIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CITECLUST_NMIN: %w", err)
		}
		c.nmin = &n
	}
	if v := os.Getenv("CITECLUST_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CITECLUST_WORKERS: %w", err)
		}
		c.Clustering.WorkerCount = n
	}
	return nil
}

// Validate rejects unknown modes, negative resolutions and negative thresholds.
func (c *Config) Validate() error {
	if _, err := c.preset(c.Clustering.Mode); err != nil {
		return fmt.Errorf("%w (want %q or %q)", err, ModeField, ModeTopic)
	}
	for name, p := range map[string]Preset{ModeField: c.Clustering.Field, ModeTopic: c.Clustering.Topic} {
		if err := classify.ValidateThreshold(p.NMin); err != nil {
			return fmt.Errorf("%s preset: %w", name, err)
		}
		if p.Resolution < 0 {
			return fmt.Errorf("%s preset: negative resolution %g", name, p.Resolution)
		}
	}
	if c.nmin != nil {
		if err := classify.ValidateThreshold(*c.nmin); err != nil {
			return fmt.Errorf("CITECLUST_NMIN: %w", err)
		}
	}
	if c.resolution != nil && *c.resolution < 0 {
		return fmt.Errorf("CITECLUST_RESOLUTION: negative resolution %g", *c.resolution)
	}
	return nil
}

func (c *Config) preset(mode string) (Preset, error) {
	switch mode {
	case ModeField:
		return c.Clustering.Field, nil
	case ModeTopic:
		return c.Clustering.Topic, nil
	}
	return Preset{}, fmt.Errorf("unknown clustering mode %q", mode)
}

// Params resolves the preset for mode; an empty mode uses the configured one.
// CITECLUST_RESOLUTION and CITECLUST_NMIN override the resolved preset.
func (c *Config) Params(mode string) (Params, error) {
	if mode == "" {
		mode = c.Clustering.Mode
	}

	preset, err := c.preset(mode)
	if err != nil {
		return Params{}, err
	}
	if c.resolution != nil {
		preset.Resolution = *c.resolution
	}
	if c.nmin != nil {
		preset.NMin = *c.nmin
	}

	workers := c.Clustering.WorkerCount
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return Params{
		Mode:        mode,
		Resolution:  preset.Resolution,
		NMin:        preset.NMin,
		WorkerCount: workers,
	}, nil
}
