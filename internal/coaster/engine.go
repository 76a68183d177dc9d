// Package coaster liga a trilha, a simulação e a telemetria ao resto do
// servidor (WebSocket, Redis e PLC).
package coaster

import (
	"fmt"
	"time"

	"coaster_go/internal/config"
	"coaster_go/internal/curve"
	"coaster_go/internal/models"
	"coaster_go/internal/series"
	"coaster_go/internal/simulation"
	"coaster_go/internal/telemetry"
)

// BuildTrack normaliza, reduz e constrói a trilha de um dataset
func BuildTrack(ds *models.Dataset, cfg config.TrackConfig) (*curve.Track, []series.Sample, error) {
	if ds == nil {
		return nil, nil, fmt.Errorf("dataset nulo: %w", series.ErrInsufficientSamples)
	}

	opts := series.DefaultOptions()
	if cfg.RatioSentinel > 0 {
		opts.RatioSentinel = cfg.RatioSentinel
	}

	normalized, bounds, err := series.Normalize(ds.Samples, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("normalizar dataset: %w", err)
	}

	reduced := series.ReduceWithEndpoints(normalized, cfg.Buckets)

	track, err := curve.Build(reduced, bounds, cfg.Geometry)
	if err != nil {
		return nil, nil, fmt.Errorf("construir trilha: %w", err)
	}
	return track, reduced, nil
}

// Engine executa um tick completo: passo da simulação, leitura do oráculo e
// apresentação. Pertence a uma única goroutine.
type Engine struct {
	track     *curve.Track
	stepper   *simulation.Stepper
	presenter *telemetry.Presenter
	display   *telemetry.Display
}

// NewEngine cria um Engine parado no início da trilha
func NewEngine(track *curve.Track, dynamics simulation.Config) *Engine {
	return &Engine{
		track:     track,
		stepper:   simulation.NewStepper(track, dynamics),
		presenter: telemetry.NewPresenter(),
		display:   telemetry.NewDisplay(),
	}
}

// Display retorna o painel atualizado pelo Engine
func (e *Engine) Display() *telemetry.Display { return e.display }

// Tick avança delta e retorna o quadro publicado
func (e *Engine) Tick(delta time.Duration, now time.Time) models.TelemetryFrame {
	snap := e.stepper.Step(delta)

	magnitude := e.track.MagnitudeAt(snap.Progress)
	timestamp := e.track.TimestampAt(snap.Progress)
	ratio := e.track.RatioAt(snap.Progress)

	presented := e.presenter.Present(magnitude, timestamp, ratio)
	presented.Apply(e.display)
	state := e.display.State()

	return models.TelemetryFrame{
		Tick:       snap.Tick,
		Lap:        snap.Lap,
		Progress:   snap.Progress,
		Velocity:   snap.Velocity,
		Wrapped:    snap.Wrapped,
		Position:   snap.Position.Array(),
		LookAt:     snap.LookAt.Array(),
		Tangent:    snap.Tangent.Array(),
		Magnitude:  magnitude,
		Timestamp:  timestamp,
		Ratio:      ratio,
		Percentage: presented.Percentage,
		Slots:      state.Texts,
		Indicators: state.Indicators,
		Bias:       state.Classes[telemetry.SlotRatio],
		Time:       now,
	}
}
