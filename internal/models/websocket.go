package models

import "time"

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "frame", "status", "lap", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// FrameMessage é uma mensagem específica para frames de telemetria
type FrameMessage struct {
	WebSocketMessage
	Frame TelemetryFrame `json:"frame"`
}

// LapMessage é enviada quando o veículo completa uma volta
type LapMessage struct {
	WebSocketMessage
	Lap LapRecord `json:"lap"`
}

// StatusMessage é uma mensagem específica para atualizações de status
type StatusMessage struct {
	WebSocketMessage
	Status     string `json:"status"`
	LastError  string `json:"lastError,omitempty"`
	ErrorCount int    `json:"errorCount,omitempty"`
}

// CameraMessage responde a um redimensionamento com a nova câmera
type CameraMessage struct {
	WebSocketMessage
	Viewport Viewport `json:"viewport"`
	Camera   Camera   `json:"camera"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string      `json:"type"`             // Tipo de comando: "ping", "get_status", "resize", etc.
	Params interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string      `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado pelo cliente
type ClientCommand struct {
	Command  string      `json:"command"`
	Params   interface{} `json:"params,omitempty"`
	ClientID string      `json:"-"` // Usado internamente, não enviado no JSON
}

// PingMessage representa um ping enviado pelo servidor
type PingMessage struct {
	WebSocketMessage
	Time int64 `json:"time"` // Timestamp em milissegundos
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
