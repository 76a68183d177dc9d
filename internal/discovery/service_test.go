package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaster_go/internal/config"
)

func TestNewDiscoveryService(t *testing.T) {
	cfg := config.Default().Discovery
	s := NewDiscoveryService(cfg, 8080, "1.2.0")

	assert.Contains(t, s.GetInstanceName(), "-coaster")
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.GetServerIP())
}

func TestTXTRecords(t *testing.T) {
	s := NewDiscoveryService(config.Default().Discovery, 8080, "1.2.0")
	s.serverIP = "10.0.0.5"

	assert.Equal(t, []string{
		"version=1.2.0",
		"ip=10.0.0.5",
		"name=Coaster Telemetry",
		"path=/ws",
	}, s.txtRecords())
}

func TestStartDisabled(t *testing.T) {
	cfg := config.Default().Discovery
	cfg.Enabled = false
	s := NewDiscoveryService(cfg, 8080, "1.2.0")

	require.NoError(t, s.Start())
	assert.False(t, s.IsRunning())
	s.Stop()
}
