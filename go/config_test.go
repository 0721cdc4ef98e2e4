package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := newCommandFlags("test").parse(nil)
	require.NoError(t, err)
	assert.Equal(t, defaults(), cfg)
	_, err = cfg.world("overworld", nil)
	assert.ErrorContains(t, err, "unknown world")
}

func TestConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
worlds:
  overworld: /srv/mc/world/region
  nether: /srv/mc/world/DIM-1/region
store: /var/lib/cull.db
workers: 3
read_timeout: 3s
log_format: json
`), 0o644))

	cfg, err := newCommandFlags("test").parse([]string{
		"-config", path, "-workers", "7", "-world", "end", "-regions", "fake", "-verify", "extra",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"overworld": "/srv/mc/world/region",
		"nether":    "/srv/mc/world/DIM-1/region",
		"end":       fakeWorld,
	}, cfg.Worlds)
	assert.Equal(t, "/var/lib/cull.db", cfg.Store)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.WriteTimeout)
	assert.True(t, cfg.Verify)

	logger, err := cfg.logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	bm, err := cfg.blockMapper()
	require.NoError(t, err)
	w, err := cfg.world("end", bm)
	require.NoError(t, err)
	regions, err := w.Regions()
	require.NoError(t, err)
	assert.Len(t, regions, 9)
}

func TestConfigErrors(t *testing.T) {
	_, err := newCommandFlags("test").parse([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = newCommandFlags("test").parse([]string{"-nope"})
	assert.Error(t, err)

	cfg := defaults()
	cfg.LogFormat = "xml"
	_, err = cfg.logger()
	assert.ErrorContains(t, err, "unknown log format")

	cfg = defaults()
	cfg.LogLevel = "loud"
	_, err = cfg.logger()
	assert.Error(t, err)

	cfg.BlockTable = filepath.Join(t.TempDir(), "blocks.yaml")
	_, err = cfg.blockMapper()
	assert.Error(t, err)
}
