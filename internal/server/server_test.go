package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	samples := make([]models.RawSample, 40)
	for i := range samples {
		samples[i] = models.RawSample{
			Timestamp:    int64(1_690_000_000 + i*3600),
			Magnitude:    float64(2_000_000 + i*i*1000),
			LongPortion:  float64(5 + i%4),
			ShortPortion: float64(4 + i%3),
		}
	}
	raw, err := json.Marshal(samples)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tvs.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Source.File = writeDataset(t)
	cfg.Redis.Enabled = false
	cfg.Discovery.Enabled = false
	cfg.Simulation.FrameRate = 200

	srv, err := NewServer(&cfg)
	require.NoError(t, err)
	require.NoError(t, srv.coasterService.Start())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
	})
	return srv, ts
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestServer_EndToEnd(t *testing.T) {
	srv, ts := testServer(t)

	require.Eventually(t, func() bool {
		return srv.coasterService.GetStatus().Status == models.StatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	code, health := getJSON(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health["status"])
	services := health["services"].(map[string]interface{})
	assert.Equal(t, "running", services["coaster"])
	assert.Equal(t, "disabled", services["redis"])
	assert.Equal(t, "disabled", services["plc"])

	code, info := getJSON(t, ts.URL+"/info")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Coaster Telemetry", info["name"])
	assert.Equal(t, Version, info["version"])

	code, status := getJSON(t, ts.URL+"/api/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "running", status["status"])
	assert.Equal(t, float64(40), status["samples"])

	code, track := getJSON(t, ts.URL+"/api/track?segments=50")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, track["points"], 51)

	require.Eventually(t, func() bool {
		code, _ := getJSON(t, ts.URL+"/api/stats")
		return code == http.StatusOK && srv.coasterService.GetLastFrame() != nil
	}, 2*time.Second, 10*time.Millisecond)

	code, frame := getJSON(t, ts.URL+"/api/current")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, frame, "slots")
}

func TestServer_WebSocketWelcome(t *testing.T) {
	_, ts := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "welcome", msg["type"])
}

func TestServer_FailedLoad(t *testing.T) {
	cfg := config.Default()
	cfg.Source.File = filepath.Join(t.TempDir(), "ausente.json")
	cfg.Source.MaxAttempts = 1
	cfg.Redis.Enabled = false
	cfg.Discovery.Enabled = false

	srv, err := NewServer(&cfg)
	require.NoError(t, err)
	require.NoError(t, srv.coasterService.Start())
	ts := httptest.NewServer(srv.Handler())
	defer func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	}()

	require.Eventually(t, func() bool {
		return srv.coasterService.GetStatus().Status == models.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	code, health := getJSON(t, ts.URL+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "failed", health["status"])

	code, _ = getJSON(t, ts.URL+"/api/track")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestNewServer_NilConfig(t *testing.T) {
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
