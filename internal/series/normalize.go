// Package series converte a série bruta de TVS em pontos normalizados
// e reduzidos, prontos para a construção das curvas da trilha.
//
// Todas as funções são puras: nenhuma mantém estado entre chamadas.
package series

import (
	"fmt"

	"coaster_go/internal/models"
)

const (
	// DefaultRatioSentinel é a razão usada quando a parcela short é zero
	DefaultRatioSentinel = 2.0

	// neutralRatio é usada quando as duas parcelas são zero
	neutralRatio = 1.0

	// degenerateValue é o valor normalizado quando max == min
	degenerateValue = 0.5
)

// Sample é um ponto normalizado: T e V em [0,1], Ratio sem reescala
type Sample struct {
	T     float64 `json:"t"`
	V     float64 `json:"v"`
	Ratio float64 `json:"ratio"`
}

// Bounds guarda os extremos globais usados na normalização
type Bounds struct {
	MinTimestamp float64 `json:"minTimestamp"`
	MaxTimestamp float64 `json:"maxTimestamp"`
	MinMagnitude float64 `json:"minMagnitude"`
	MaxMagnitude float64 `json:"maxMagnitude"`
}

// Timestamp desfaz a normalização de um tempo
func (b Bounds) Timestamp(n float64) float64 {
	return n*(b.MaxTimestamp-b.MinTimestamp) + b.MinTimestamp
}

// Magnitude desfaz a normalização de uma magnitude
func (b Bounds) Magnitude(n float64) float64 {
	return n*(b.MaxMagnitude-b.MinMagnitude) + b.MinMagnitude
}

// Options ajusta o tratamento de casos degenerados
type Options struct {
	// RatioSentinel substitui long/short quando short == 0 e long > 0
	RatioSentinel float64
}

// DefaultOptions retorna as opções padrão de normalização
func DefaultOptions() Options {
	return Options{RatioSentinel: DefaultRatioSentinel}
}

// Normalize reescala a série para o espaço [0,1]x[0,1] usando os extremos
// globais de timestamp e magnitude. A saída tem o mesmo tamanho e ordem da entrada.
func Normalize(raw []models.RawSample, opts Options) ([]Sample, Bounds, error) {
	if len(raw) < 2 {
		return nil, Bounds{}, fmt.Errorf("normalizar %d amostras: %w", len(raw), ErrInsufficientSamples)
	}
	if opts.RatioSentinel <= 0 {
		opts.RatioSentinel = DefaultRatioSentinel
	}

	b := Bounds{
		MinTimestamp: float64(raw[0].Timestamp),
		MaxTimestamp: float64(raw[0].Timestamp),
		MinMagnitude: raw[0].Magnitude,
		MaxMagnitude: raw[0].Magnitude,
	}
	for i, s := range raw {
		if s.Magnitude < 0 || s.LongPortion < 0 || s.ShortPortion < 0 {
			return nil, Bounds{}, fmt.Errorf("amostra %d: %w", i, ErrNegativeValue)
		}
		ts := float64(s.Timestamp)
		if ts < b.MinTimestamp {
			b.MinTimestamp = ts
		}
		if ts > b.MaxTimestamp {
			b.MaxTimestamp = ts
		}
		if s.Magnitude < b.MinMagnitude {
			b.MinMagnitude = s.Magnitude
		}
		if s.Magnitude > b.MaxMagnitude {
			b.MaxMagnitude = s.Magnitude
		}
	}

	out := make([]Sample, len(raw))
	for i, s := range raw {
		out[i] = Sample{
			T:     rescale(float64(s.Timestamp), b.MinTimestamp, b.MaxTimestamp),
			V:     rescale(s.Magnitude, b.MinMagnitude, b.MaxMagnitude),
			Ratio: Ratio(s.LongPortion, s.ShortPortion, opts.RatioSentinel),
		}
	}

	return out, b, nil
}

// Ratio calcula long/short com valores definidos para short == 0
func Ratio(long, short, sentinel float64) float64 {
	if short == 0 {
		if long == 0 {
			return neutralRatio
		}
		return sentinel
	}
	return long / short
}

func rescale(x, min, max float64) float64 {
	if max == min {
		return degenerateValue
	}
	return (x - min) / (max - min)
}
