package curve

import (
	"fmt"

	"coaster_go/internal/series"
)

// DefaultEpsilon é o passo da diferença central da tangente
const DefaultEpsilon = 1e-4

// Oracle é a única interface que os geradores de geometria (trilhos,
// dormentes, sombra, pilares) podem consumir.
type Oracle interface {
	PositionAt(t float64) Vec3
	TangentAt(t float64) Vec3
}

// Geometry define como os sinais viram deslocamentos na cena
type Geometry struct {
	LateralScale   float64 `json:"lateralScale" yaml:"lateral_scale"`
	VerticalScale  float64 `json:"verticalScale" yaml:"vertical_scale"`
	VerticalOffset float64 `json:"verticalOffset" yaml:"vertical_offset"`
	TrackLength    float64 `json:"trackLength" yaml:"track_length"`
	WorldScale     float64 `json:"worldScale" yaml:"world_scale"`
	RatioCeiling   float64 `json:"ratioCeiling" yaml:"ratio_ceiling"` // limita o deslocamento lateral
	Epsilon        float64 `json:"epsilon" yaml:"epsilon"`
}

// DefaultGeometry retorna as escalas padrão da cena
func DefaultGeometry() Geometry {
	return Geometry{
		LateralScale:   20,
		VerticalScale:  10,
		VerticalOffset: 10,
		TrackLength:    80,
		WorldScale:     2,
		RatioCeiling:   2,
		Epsilon:        DefaultEpsilon,
	}
}

// Track combina a curva vertical (magnitude) e a horizontal (razão)
// sobre o mesmo parâmetro t. É imutável depois de construída.
type Track struct {
	vertical   *Spline
	horizontal *Spline
	bounds     series.Bounds
	geometry   Geometry
}

// Build cria as duas curvas a partir da série reduzida
func Build(reduced []series.Sample, bounds series.Bounds, geometry Geometry) (*Track, error) {
	vpts := make([]Vec2, len(reduced))
	hpts := make([]Vec2, len(reduced))
	for i, s := range reduced {
		vpts[i] = Vec2{X: s.T, Y: s.V}
		hpts[i] = Vec2{X: s.T, Y: s.Ratio}
	}

	vertical, err := NewSpline(vpts)
	if err != nil {
		return nil, fmt.Errorf("curva vertical: %w", err)
	}
	horizontal, err := NewSpline(hpts)
	if err != nil {
		return nil, fmt.Errorf("curva horizontal: %w", err)
	}

	if geometry.Epsilon <= 0 {
		geometry.Epsilon = DefaultEpsilon
	}

	return &Track{
		vertical:   vertical,
		horizontal: horizontal,
		bounds:     bounds,
		geometry:   geometry,
	}, nil
}

// Bounds retorna os extremos usados na normalização
func (tr *Track) Bounds() series.Bounds { return tr.bounds }

// Geometry retorna as constantes de cena da trilha
func (tr *Track) Geometry() Geometry { return tr.geometry }

// PositionAt mapeia t para a posição 3D: x codifica a razão, y a magnitude
// e z avança linearmente com t.
func (tr *Track) PositionAt(t float64) Vec3 {
	t = Clamp01(t)
	g := tr.geometry

	ratio := tr.horizontal.PointAt(t).Y
	if g.RatioCeiling > 0 {
		ratio = min(max(ratio, 0), g.RatioCeiling)
	}

	return Vec3{
		X: -(ratio - 1) * g.LateralScale,
		Y: tr.vertical.PointAt(t).Y*g.VerticalScale + g.VerticalOffset,
		Z: t * g.TrackLength,
	}.Scale(g.WorldScale)
}

// TangentAt estima a direção unitária da trilha por diferença central.
// Nas bordas a diferença fica unilateral; z cresce com t, então o vetor
// nunca é nulo enquanto TrackLength e WorldScale forem positivos.
func (tr *Track) TangentAt(t float64) Vec3 {
	t = Clamp01(t)
	eps := tr.geometry.Epsilon
	t1 := max(0, t-eps)
	t2 := min(1, t+eps)
	return tr.PositionAt(t2).Sub(tr.PositionAt(t1)).Normalize()
}

// MagnitudeAt retorna a magnitude em unidades originais
func (tr *Track) MagnitudeAt(t float64) float64 {
	return tr.bounds.Magnitude(tr.vertical.PointAt(Clamp01(t)).Y)
}

// TimestampAt retorna o timestamp Unix (segundos) correspondente a t
func (tr *Track) TimestampAt(t float64) float64 {
	return tr.bounds.Timestamp(tr.vertical.PointAt(Clamp01(t)).X)
}

// RatioAt retorna a razão long/short sem reescala
func (tr *Track) RatioAt(t float64) float64 {
	return tr.horizontal.PointAt(Clamp01(t)).Y
}
