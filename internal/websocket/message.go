package websocket

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"

	"coaster_go/internal/models"
)

// Tipos de mensagem enviados aos clientes
const (
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypeLap     = "lap"
	TypeStatus  = "status"
	TypeCamera  = "camera"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeError   = "error"
)

// Comandos aceitos dos clientes
const (
	CommandPing      = "ping"
	CommandGetStatus = "get_status"
	CommandGetFrame  = "get_frame"
	CommandResize    = "resize"
)

func header(msgType string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      msgType,
		Timestamp: time.Now(),
	}
}

// NewFrameMessage cria uma mensagem com o quadro de telemetria
func NewFrameMessage(frame models.TelemetryFrame) *models.FrameMessage {
	return &models.FrameMessage{
		WebSocketMessage: header(TypeFrame),
		Frame:            frame,
	}
}

// NewLapMessage cria uma mensagem de volta completa
func NewLapMessage(lap models.LapRecord) *models.LapMessage {
	return &models.LapMessage{
		WebSocketMessage: header(TypeLap),
		Lap:              lap,
	}
}

// NewStatusMessage cria uma nova mensagem de status
func NewStatusMessage(status models.CoasterStatus) *models.StatusMessage {
	return &models.StatusMessage{
		WebSocketMessage: header(TypeStatus),
		Status:           status.Status,
		LastError:        status.LastError,
		ErrorCount:       status.ErrorCount,
	}
}

// NewCameraMessage cria a resposta a um redimensionamento
func NewCameraMessage(viewport models.Viewport, camera models.Camera) *models.CameraMessage {
	return &models.CameraMessage{
		WebSocketMessage: header(TypeCamera),
		Viewport:         viewport,
		Camera:           camera,
	}
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string) models.WebSocketMessage {
	msg := header(TypeError)
	msg.Error = message
	msg.Data = map[string]string{"code": errorCode}
	return msg
}

// CreatePongResponse cria uma resposta para um ping do cliente
func CreatePongResponse(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: header(TypePong),
		Time:             pingTime,
		ServerTime:       time.Now().UnixMilli(),
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// ParseClientCommand analisa um comando recebido do cliente, rejeitando
// campos desconhecidos
func ParseClientCommand(data []byte) (models.CommandMessage, error) {
	var command models.CommandMessage
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&command)
	return command, err
}

// paramFloat extrai um número dos parâmetros de um comando
func paramFloat(params interface{}, name string) (float64, bool) {
	m, ok := params.(map[string]interface{})
	if !ok {
		return 0, false
	}
	v, ok := m[name].(float64)
	return v, ok
}
