package telemetry

// Direction indica como um valor mudou desde o tick anterior
type Direction int

const (
	// DirectionNone: primeiro tick, não há valor anterior
	DirectionNone Direction = iota
	DirectionUnchanged
	DirectionUp
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUnchanged:
		return "unchanged"
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// Classes do indicador de viés
const (
	BiasLong  = "long"
	BiasShort = "short"
)

// DefaultMagnitudePrefix é o símbolo antes da magnitude abreviada
const DefaultMagnitudePrefix = "$"

// Frame é a saída de um tick do Presenter
type Frame struct {
	Magnitude  float64
	Timestamp  float64
	Ratio      float64
	Percentage float64

	MagnitudeText  string
	DateText       string
	PercentageText string

	MagnitudeTrend  Direction
	TimestampTrend  Direction
	PercentageTrend Direction

	// Bias fica vazio quando a porcentagem é exatamente 50
	Bias string
}

// Presenter guarda os valores do tick anterior. Pertence à goroutine do tick.
type Presenter struct {
	prefix string

	hasPrev        bool
	prevMagnitude  float64
	prevTimestamp  float64
	prevPercentage float64
}

// NewPresenter cria um Presenter com o prefixo padrão
func NewPresenter() *Presenter {
	return &Presenter{prefix: DefaultMagnitudePrefix}
}

// WithPrefix troca o símbolo usado antes da magnitude
func (p *Presenter) WithPrefix(prefix string) *Presenter {
	p.prefix = prefix
	return p
}

// Reset esquece os valores anteriores
func (p *Presenter) Reset() {
	p.hasPrev = false
	p.prevMagnitude = 0
	p.prevTimestamp = 0
	p.prevPercentage = 0
}

// Present formata os valores atuais e compara com o tick anterior
func (p *Presenter) Present(magnitude, timestamp, ratio float64) Frame {
	pct := Percentage(ratio)

	f := Frame{
		Magnitude:      magnitude,
		Timestamp:      timestamp,
		Ratio:          ratio,
		Percentage:     pct,
		MagnitudeText:  p.prefix + Abbreviate(magnitude),
		DateText:       FormatDate(timestamp),
		PercentageText: FormatPercentage(pct),
	}

	if p.hasPrev {
		f.MagnitudeTrend = compare(magnitude, p.prevMagnitude)
		f.TimestampTrend = compare(timestamp, p.prevTimestamp)
		f.PercentageTrend = compare(pct, p.prevPercentage)
	}

	switch {
	case pct > 50:
		f.Bias = BiasLong
	case pct < 50:
		f.Bias = BiasShort
	}

	p.hasPrev = true
	p.prevMagnitude = magnitude
	p.prevTimestamp = timestamp
	p.prevPercentage = pct
	return f
}

func compare(curr, prev float64) Direction {
	switch {
	case curr > prev:
		return DirectionUp
	case curr < prev:
		return DirectionDown
	default:
		return DirectionUnchanged
	}
}
