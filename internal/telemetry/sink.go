package telemetry

import (
	"maps"
	"sync"
)

// Slots de texto do painel
const (
	SlotMagnitude = "magnitude"
	SlotDate      = "date"
	SlotRatio     = "ratio"
)

// Indicadores direcionais
const (
	IndicatorUp    = "up"
	IndicatorDown  = "down"
	IndicatorLeft  = "left"
	IndicatorRight = "right"
)

// Sink recebe as escritas do painel. A tecnologia de exibição fica fora daqui.
type Sink interface {
	SetText(slot, text string)
	SetOpacity(indicator string, opacity float64)
	SetClass(slot, class string)
}

// Apply escreve o quadro no sink. Indicadores só mudam quando há direção.
func (f Frame) Apply(sink Sink) {
	sink.SetText(SlotMagnitude, f.MagnitudeText)
	sink.SetText(SlotDate, f.DateText)
	sink.SetText(SlotRatio, f.PercentageText)

	switch f.MagnitudeTrend {
	case DirectionUp:
		sink.SetOpacity(IndicatorDown, 0)
		sink.SetOpacity(IndicatorUp, 1)
	case DirectionDown:
		sink.SetOpacity(IndicatorDown, 1)
		sink.SetOpacity(IndicatorUp, 0)
	}

	switch f.PercentageTrend {
	case DirectionUp:
		sink.SetOpacity(IndicatorLeft, 0)
		sink.SetOpacity(IndicatorRight, 1)
	case DirectionDown:
		sink.SetOpacity(IndicatorLeft, 1)
		sink.SetOpacity(IndicatorRight, 0)
	}

	if f.Bias != "" {
		sink.SetClass(SlotRatio, f.Bias)
	}
}

// DisplayState é uma cópia do estado do Display
type DisplayState struct {
	Texts      map[string]string  `json:"texts"`
	Indicators map[string]float64 `json:"indicators"`
	Classes    map[string]string  `json:"classes"`
}

// Display é um Sink em memória; seu estado é enviado aos clientes
type Display struct {
	mutex      sync.RWMutex
	texts      map[string]string
	indicators map[string]float64
	classes    map[string]string
}

// NewDisplay cria um painel com os indicadores apagados
func NewDisplay() *Display {
	return &Display{
		texts: make(map[string]string),
		indicators: map[string]float64{
			IndicatorUp:    0,
			IndicatorDown:  0,
			IndicatorLeft:  0,
			IndicatorRight: 0,
		},
		classes: make(map[string]string),
	}
}

func (d *Display) SetText(slot, text string) {
	d.mutex.Lock()
	d.texts[slot] = text
	d.mutex.Unlock()
}

func (d *Display) SetOpacity(indicator string, opacity float64) {
	d.mutex.Lock()
	d.indicators[indicator] = opacity
	d.mutex.Unlock()
}

func (d *Display) SetClass(slot, class string) {
	d.mutex.Lock()
	d.classes[slot] = class
	d.mutex.Unlock()
}

// State retorna uma cópia do estado atual
func (d *Display) State() DisplayState {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return DisplayState{
		Texts:      maps.Clone(d.texts),
		Indicators: maps.Clone(d.indicators),
		Classes:    maps.Clone(d.classes),
	}
}
