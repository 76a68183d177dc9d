package models

import "time"

// RawSample representa um ponto da série obtida da API de TVS
type RawSample struct {
	Timestamp    int64   `json:"timestamp"`                 // Unix, em segundos
	Magnitude    float64 `json:"total_value_secured"`       // Valor total garantido
	LongPortion  float64 `json:"total_value_secured_long"`  // Parcela long
	ShortPortion float64 `json:"total_value_secured_short"` // Parcela short
}

// Dataset é o resultado imutável da fase de carregamento
type Dataset struct {
	Samples     []RawSample `json:"samples"`
	Fingerprint string      `json:"fingerprint"` // xxhash do payload bruto
	Origin      string      `json:"origin"`      // URL, arquivo ou "redis"
	FetchedAt   time.Time   `json:"fetchedAt"`
}

// Len retorna o número de amostras do dataset
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Samples)
}

// Estados possíveis do serviço da montanha-russa
const (
	StatusInitializing = "initializing"
	StatusLoading      = "loading"
	StatusRunning      = "running"
	StatusFailed       = "failed_to_load"
	StatusStopped      = "stopped"
)

// CoasterStatus representa o status atual do serviço
type CoasterStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastError   string    `json:"lastError,omitempty"`
	ErrorCount  int       `json:"errorCount,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Samples     int       `json:"samples,omitempty"`
}

// TelemetryFrame é o estado publicado a cada tick da simulação
type TelemetryFrame struct {
	Tick     int64      `json:"tick"`
	Lap      int64      `json:"lap"`
	Progress float64    `json:"progress"`
	Velocity float64    `json:"velocity"`
	Wrapped  bool       `json:"wrapped,omitempty"`
	Position [3]float64 `json:"position"`
	LookAt   [3]float64 `json:"lookAt"`
	Tangent  [3]float64 `json:"tangent"`

	Magnitude  float64 `json:"magnitude"`
	Timestamp  float64 `json:"timestamp"`
	Ratio      float64 `json:"ratio"`
	Percentage float64 `json:"percentage"`

	// Slots de exibição já formatados
	Slots      map[string]string  `json:"slots"`
	Indicators map[string]float64 `json:"indicators"`
	Bias       string             `json:"bias,omitempty"`

	Time time.Time `json:"time"`
}

// LapRecord registra uma volta completa
type LapRecord struct {
	Lap      int64         `json:"lap"`
	Ticks    int64         `json:"ticks"`
	Duration time.Duration `json:"duration"`
	EndedAt  time.Time     `json:"endedAt"`
}

// TrackPoint é um ponto amostrado da trilha para consumidores de geometria
type TrackPoint struct {
	T        float64    `json:"t"`
	Position [3]float64 `json:"position"`
	Tangent  [3]float64 `json:"tangent"`
}

// ControlPoint é um ponto de controle reduzido exposto pela API
type ControlPoint struct {
	T     float64 `json:"t"`
	V     float64 `json:"v"`
	Ratio float64 `json:"ratio"`
}

// Viewport representa as dimensões de exibição de um cliente
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Camera contém os parâmetros de projeção do veículo
type Camera struct {
	FOV    float64 `json:"fov"`
	Aspect float64 `json:"aspect"`
	Near   float64 `json:"near"`
	Far    float64 `json:"far"`
}
