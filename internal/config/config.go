package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/zeusync/engine/internal/core/observability/log"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidConfig     = errors.New("invalid config")
)

type Config struct {
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	World   WorldConfig   `yaml:"world" toml:"world"`
	Loader  LoaderConfig  `yaml:"loader" toml:"loader"`
	Scene   SceneConfig   `yaml:"scene" toml:"scene"`
	Editor  EditorConfig  `yaml:"editor" toml:"editor"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "json" or "console"
}

type WorldConfig struct {
	DeltaTime float64 `yaml:"delta_time" toml:"delta_time"` // seconds per frame
	MaxFrames uint64  `yaml:"max_frames" toml:"max_frames"` // 0 runs until interrupted
}

type LoaderConfig struct {
	Workers int    `yaml:"workers" toml:"workers"`
	Root    string `yaml:"root" toml:"root"`
}

type SceneConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type EditorConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	ListenAddr string `yaml:"listen_addr" toml:"listen_addr"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		World: WorldConfig{
			DeltaTime: 1.0 / 60.0,
		},
		Loader: LoaderConfig{
			Workers: 4,
			Root:    "assets",
		},
		Editor: EditorConfig{
			ListenAddr: "127.0.0.1:7070",
		},
	}
}

// Load reads a YAML or TOML file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.World.DeltaTime <= 0 {
		return fmt.Errorf("%w: world.delta_time must be positive, got %g", ErrInvalidConfig, c.World.DeltaTime)
	}
	if c.Loader.Workers <= 0 {
		return fmt.Errorf("%w: loader.workers must be positive, got %d", ErrInvalidConfig, c.Loader.Workers)
	}
	if c.Editor.Enabled && c.Editor.ListenAddr == "" {
		return fmt.Errorf("%w: editor enabled without listen_addr", ErrInvalidConfig)
	}
	return nil
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	return log.NewWithFormat(level, c.Logging.Format)
}
