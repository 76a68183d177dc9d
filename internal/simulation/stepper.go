// Package simulation avança o veículo pela trilha em passos discretos.
//
// Cada passo segue a ordem:
//
//  1. progresso += velocidade (com reinício da volta quando passa de 1)
//  2. consulta da posição e da tangente no oráculo
//  3. velocidade -= inclinação * ganho * delta, limitada à faixa configurada
//  4. pose do veículo e ponto de mira
//
// O Stepper não é seguro para uso concorrente: pertence à goroutine do tick.
package simulation

import (
	"fmt"
	"time"

	"coaster_go/internal/curve"
)

// Config reúne as constantes da dinâmica do veículo
type Config struct {
	MinVelocity   float64 `json:"minVelocity" yaml:"min_velocity"`
	MaxVelocity   float64 `json:"maxVelocity" yaml:"max_velocity"`
	Gain          float64 `json:"gain" yaml:"gain"` // por milissegundo de delta
	VehicleOffset float64 `json:"vehicleOffset" yaml:"vehicle_offset"`
}

// DefaultConfig retorna a dinâmica padrão do carrinho
func DefaultConfig() Config {
	return Config{
		MinVelocity:   0.0002,
		MaxVelocity:   0.0004,
		Gain:          0.0000001,
		VehicleOffset: 0.3,
	}
}

// Validate verifica a faixa de velocidade
func (c Config) Validate() error {
	if c.MinVelocity < 0 {
		return fmt.Errorf("velocidade mínima negativa: %v", c.MinVelocity)
	}
	if c.MaxVelocity < c.MinVelocity {
		return fmt.Errorf("faixa de velocidade invertida: [%v, %v]", c.MinVelocity, c.MaxVelocity)
	}
	if c.Gain < 0 {
		return fmt.Errorf("ganho negativo: %v", c.Gain)
	}
	return nil
}

// Snapshot é o resultado de um passo
type Snapshot struct {
	Tick     int64
	Lap      int64
	Progress float64
	Velocity float64
	Wrapped  bool

	Position curve.Vec3 // pose do veículo, já com o deslocamento vertical
	LookAt   curve.Vec3
	Tangent  curve.Vec3
}

// Stepper guarda o estado explícito da simulação
type Stepper struct {
	oracle curve.Oracle
	config Config

	progress float64
	velocity float64
	lap      int64
	ticks    int64
}

// NewStepper cria um Stepper parado no início da trilha
func NewStepper(oracle curve.Oracle, config Config) *Stepper {
	return &Stepper{
		oracle: oracle,
		config: config,
	}
}

// Progress retorna o parâmetro atual na trilha
func (s *Stepper) Progress() float64 { return s.progress }

// Velocity retorna a velocidade atual em unidades de t por tick
func (s *Stepper) Velocity() float64 { return s.velocity }

// Lap retorna quantas voltas foram completadas
func (s *Stepper) Lap() int64 { return s.lap }

// Reset leva o veículo de volta ao início
func (s *Stepper) Reset() {
	s.progress = 0
	s.velocity = 0
	s.lap = 0
	s.ticks = 0
}

// Step avança a simulação pelo tempo decorrido desde o último quadro.
// Deltas negativos são tratados como zero.
func (s *Stepper) Step(delta time.Duration) Snapshot {
	if delta < 0 {
		delta = 0
	}
	deltaMillis := float64(delta) / float64(time.Millisecond)

	s.ticks++
	s.progress += s.velocity

	wrapped := false
	if s.progress > 1 {
		s.progress = 0
		s.velocity = 0
		s.lap++
		wrapped = true
	}

	position := s.oracle.PositionAt(s.progress)
	position.Y += s.config.VehicleOffset
	tangent := s.oracle.TangentAt(s.progress)

	// subida freia, descida acelera
	s.velocity -= tangent.Y * s.config.Gain * deltaMillis
	s.velocity = max(s.config.MinVelocity, min(s.config.MaxVelocity, s.velocity))

	return Snapshot{
		Tick:     s.ticks,
		Lap:      s.lap,
		Progress: s.progress,
		Velocity: s.velocity,
		Wrapped:  wrapped,
		Position: position,
		LookAt:   position.Sub(tangent),
		Tangent:  tangent,
	}
}
