package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25, cfg.Track.Buckets)
	assert.Equal(t, time.Second/60, cfg.Simulation.TickInterval())
	assert.Equal(t, 0.0002, cfg.Simulation.Dynamics.MinVelocity)
	assert.Equal(t, 0.0004, cfg.Simulation.Dynamics.MaxVelocity)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090},
		"source": {"file": "data.json"},
		"track": {"buckets": 10},
		"redis": {"enabled": false}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "data.json", cfg.Source.File)
	assert.Equal(t, 10, cfg.Track.Buckets)
	assert.False(t, cfg.Redis.Enabled)
	// campos ausentes mantêm o padrão
	assert.Equal(t, 60, cfg.Simulation.FrameRate)
	assert.Equal(t, 20.0, cfg.Track.Geometry.LateralScale)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
  shutdown_timeout: 3s
simulation:
  frame_rate: 30
  dynamics:
    min_velocity: 0.0001
    max_velocity: 0.0005
    gain: 0.0000001
    vehicle_offset: 0.3
track:
  geometry:
    lateral_scale: 15
    vertical_scale: 10
    vertical_offset: 10
    track_length: 80
    world_scale: 2
    ratio_ceiling: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30, cfg.Simulation.FrameRate)
	assert.Equal(t, 0.0005, cfg.Simulation.Dynamics.MaxVelocity)
	assert.Equal(t, 15.0, cfg.Track.Geometry.LateralScale)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nao-existe.json"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	env := map[string]string{
		"COASTER_SERVER_PORT":   "9999",
		"COASTER_SOURCE_FILE":   "/tmp/tvs.json",
		"COASTER_REDIS_ENABLED": "false",
		"COASTER_LOG_LEVEL":     "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, applyEnvironmentOverrides(&cfg, lookup))
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/tmp/tvs.json", cfg.Source.File)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)

	env["COASTER_TRACK_BUCKETS"] = "muitos"
	assert.Error(t, applyEnvironmentOverrides(&cfg, lookup))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Dynamics.MaxVelocity = 0
	cfg.Track.Buckets = 0
	cfg.Simulation.FrameRate = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "track.buckets")
	assert.Contains(t, err.Error(), "simulation.frameRate")
	assert.Contains(t, err.Error(), "simulation.dynamics")

	cfg = Default()
	cfg.Source.URL = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
