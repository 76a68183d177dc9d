package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
)

type fakeProvider struct {
	status models.CoasterStatus
	frame  *models.TelemetryFrame
}

func (f *fakeProvider) GetStatus() models.CoasterStatus      { return f.status }
func (f *fakeProvider) GetLastFrame() *models.TelemetryFrame { return f.frame }

var testCamera = config.CameraConfig{FOV: 50, Near: 0.1, Far: 500}

type envelope struct {
	Type     string                 `json:"type"`
	Error    string                 `json:"error"`
	Status   string                 `json:"status"`
	Time     int64                  `json:"time"`
	Frame    models.TelemetryFrame  `json:"frame"`
	Camera   models.Camera          `json:"camera"`
	Viewport models.Viewport        `json:"viewport"`
	Data     map[string]interface{} `json:"data"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env
}

func startHub(t *testing.T, provider StateProvider) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub(config.WebSocketConfig{}, testCamera)
	hub.SetStateProvider(provider)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(NewHandler(hub))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return hub, conn
}

func TestHub_Session(t *testing.T) {
	provider := &fakeProvider{
		status: models.CoasterStatus{Status: models.StatusRunning},
		frame:  &models.TelemetryFrame{Tick: 42},
	}
	hub, conn := startHub(t, provider)

	welcome := readEnvelope(t, conn)
	assert.Equal(t, TypeWelcome, welcome.Type)
	assert.NotEmpty(t, welcome.Data["clientId"])

	status := readEnvelope(t, conn)
	assert.Equal(t, TypeStatus, status.Type)
	assert.Equal(t, models.StatusRunning, status.Status)
	assert.Equal(t, 1, hub.ClientCount())

	// resize só altera a câmera do cliente
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   CommandResize,
		"params": map[string]interface{}{"width": 1600, "height": 800},
	}))
	camera := readEnvelope(t, conn)
	assert.Equal(t, TypeCamera, camera.Type)
	assert.Equal(t, models.Viewport{Width: 1600, Height: 800}, camera.Viewport)
	assert.Equal(t, 2.0, camera.Camera.Aspect)
	assert.Equal(t, 50.0, camera.Camera.FOV)

	require.True(t, hub.BroadcastFrame(models.TelemetryFrame{Tick: 7, Progress: 0.25}))
	frame := readEnvelope(t, conn)
	assert.Equal(t, TypeFrame, frame.Type)
	assert.Equal(t, int64(7), frame.Frame.Tick)
	assert.Equal(t, 0.25, frame.Frame.Progress)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   CommandPing,
		"params": map[string]interface{}{"time": 1234},
	}))
	pong := readEnvelope(t, conn)
	assert.Equal(t, TypePong, pong.Type)
	assert.Equal(t, int64(1234), pong.Time)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": CommandGetFrame}))
	last := readEnvelope(t, conn)
	assert.Equal(t, TypeFrame, last.Type)
	assert.Equal(t, int64(42), last.Frame.Tick)

	hub.BroadcastLap(models.LapRecord{Lap: 3})
	lap := readEnvelope(t, conn)
	assert.Equal(t, TypeLap, lap.Type)
}

func TestHub_InvalidMessages(t *testing.T) {
	_, conn := startHub(t, nil)
	assert.Equal(t, TypeWelcome, readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{não é json")))
	bad := readEnvelope(t, conn)
	assert.Equal(t, TypeError, bad.Type)
	assert.Equal(t, "invalid_format", bad.Data["code"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "fly"}))
	unknown := readEnvelope(t, conn)
	assert.Equal(t, TypeError, unknown.Type)
	assert.Equal(t, "unknown_command", unknown.Data["code"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   CommandResize,
		"params": map[string]interface{}{"width": 0, "height": 10},
	}))
	invalid := readEnvelope(t, conn)
	assert.Equal(t, "invalid_params", invalid.Data["code"])
}

func TestHub_FrameRateLimit(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{BroadcastRate: 0.001, Burst: 1}, testCamera)

	// sem clientes nada é enviado
	assert.False(t, hub.BroadcastFrame(models.TelemetryFrame{}))

	client := &Client{hub: hub, send: make(chan []byte, 8), id: "c1"}
	hub.clients[client] = true

	assert.True(t, hub.BroadcastFrame(models.TelemetryFrame{Tick: 1}))
	assert.False(t, hub.BroadcastFrame(models.TelemetryFrame{Tick: 2}))
	assert.True(t, hub.BroadcastFrame(models.TelemetryFrame{Tick: 3, Wrapped: true}))

	stats := hub.Stats()
	assert.Equal(t, int64(1), stats.DroppedFrames)
	assert.Equal(t, 1, stats.Clients)
	assert.Len(t, hub.broadcast, 2)
}

func TestHub_CameraFor(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testCamera)

	assert.Equal(t, models.Camera{FOV: 50, Aspect: 1, Near: 0.1, Far: 500}, hub.CameraFor(models.Viewport{}))
	assert.InDelta(t, 16.0/9.0, hub.CameraFor(models.Viewport{Width: 1920, Height: 1080}).Aspect, 1e-12)
}

func TestClient_ClosedDoesNotPanic(t *testing.T) {
	c := &Client{send: make(chan []byte, 1)}
	assert.True(t, c.trySend([]byte("a")))
	assert.False(t, c.trySend([]byte("b")), "buffer cheio")

	c.close()
	c.close()
	assert.False(t, c.trySend([]byte("c")))
}
