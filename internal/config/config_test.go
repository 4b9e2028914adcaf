package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/engine/internal/core/observability/log"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Editor.Enabled)
	assert.Equal(t, 4, cfg.Loader.Workers)
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load("testdata/engine.yaml")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0.02, cfg.World.DeltaTime)
	assert.Equal(t, uint64(300), cfg.World.MaxFrames)
	assert.Equal(t, "scenes/hangar.yaml", cfg.Scene.Path)
	assert.True(t, cfg.Editor.Enabled)

	// untouched sections keep their defaults
	assert.Equal(t, Default().Loader, cfg.Loader)
	assert.Equal(t, Default().Editor.ListenAddr, cfg.Editor.ListenAddr)
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load("testdata/engine.toml")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Loader.Workers)
	assert.Equal(t, "/srv/assets", cfg.Loader.Root)
	assert.Equal(t, "0.0.0.0:9000", cfg.Editor.ListenAddr)
	assert.Equal(t, Default().World, cfg.World)

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, log.LevelWarn, logger.GetLevel())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(write("engine.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(write("broken.toml", "[world\ndelta_time = "))
	assert.Error(t, err)

	_, err = Load(write("zero.yaml", "world:\n  delta_time: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(write("level.yaml", "logging:\n  level: loud\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(write("editor.toml", "[editor]\nenabled = true\nlisten_addr = \"\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateWorkers(t *testing.T) {
	cfg := Default()
	cfg.Loader.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Logging.Format = "xml"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
