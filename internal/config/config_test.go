package config

import (
	"os"
	"path/filepath"
	"testing"

	"citeclust/internal/classify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
clustering:
  mode: topic
  field:
    resolution: 0.0002
    nmin: 200
  topic:
    resolution: 0.01
    nmin: 20
  worker_count: 4
storage:
  path: /tmp/x.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	params, err := cfg.Params("")
	require.NoError(t, err)
	assert.Equal(t, Params{Mode: ModeTopic, Resolution: 0.01, NMin: 20, WorkerCount: 4}, params)

	params, err = cfg.Params(ModeField)
	require.NoError(t, err)
	assert.Equal(t, 200, params.NMin)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.Path)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Clustering.Field, cfg.Clustering.Field)

	params, err := cfg.Params("")
	require.NoError(t, err)
	assert.Positive(t, params.WorkerCount)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CITECLUST_MODE", "topic")
	t.Setenv("CITECLUST_NMIN", "7")
	t.Setenv("CITECLUST_RESOLUTION", "0.5")
	t.Setenv("CITECLUST_WORKERS", "3")
	t.Setenv("CITECLUST_DB", "env.db")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	params, err := cfg.Params("")
	require.NoError(t, err)
	assert.Equal(t, Params{Mode: ModeTopic, Resolution: 0.5, NMin: 7, WorkerCount: 3}, params)
	assert.Equal(t, "env.db", cfg.Storage.Path)
}

func TestLoadConfig_EnvOverridesFollowRequestedMode(t *testing.T) {
	t.Setenv("CITECLUST_NMIN", "3")
	t.Setenv("CITECLUST_RESOLUTION", "0.5")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, ModeField, cfg.Clustering.Mode)

	for _, mode := range []string{"", ModeField, ModeTopic} {
		params, err := cfg.Params(mode)
		require.NoError(t, err)
		assert.Equal(t, 0.5, params.Resolution, "mode %q", mode)
		assert.Equal(t, 3, params.NMin, "mode %q", mode)
	}

	// Presets themselves keep their configured values.
	assert.Equal(t, Default().Clustering.Topic, cfg.Clustering.Topic)
}

func TestLoadConfig_NegativeEnvThresholdRejected(t *testing.T) {
	t.Setenv("CITECLUST_NMIN", "-1")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, classify.ErrInvalidThreshold)
}

func TestLoadConfig_NegativeThresholdRejected(t *testing.T) {
	path := writeConfig(t, "clustering:\n  field:\n    nmin: -3\n")

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, classify.ErrInvalidThreshold)
}

func TestLoadConfig_BadValues(t *testing.T) {
	t.Run("Unknown mode", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "clustering:\n  mode: galaxy\n"))
		assert.Error(t, err)
	})

	t.Run("Malformed env", func(t *testing.T) {
		t.Setenv("CITECLUST_NMIN", "lots")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("Malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "clustering: ["))
		assert.Error(t, err)
	})
}

func TestParams_UnknownMode(t *testing.T) {
	_, err := Default().Params("galaxy")
	assert.Error(t, err)
}
