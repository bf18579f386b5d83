package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battkit/battkit/pkg/container"
	_ "github.com/battkit/battkit/pkg/container/arrowipc"
	"github.com/battkit/battkit/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "arrow", cfg.Format)
	assert.Equal(t, 0, cfg.CompressionLevel)
	assert.Equal(t, container.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression_level: 6\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.CompressionLevel)
	assert.Equal(t, "arrow", cfg.Format, "unset fields keep their defaults")
	assert.Equal(t, container.DefaultBatchSize, cfg.BatchSize)
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("BATTKIT_LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "battkit.yaml")
	content := "logging:\n  level: ${BATTKIT_LOG_LEVEL}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad_format.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: hdf5\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	path = filepath.Join(dir, "bad_level.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression_level: 12\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.CompressionLevel = 4
	cfg.Logging.Format = "json"

	path := filepath.Join(t.TempDir(), "battkit.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
