// Package curve constrói as curvas suaves da trilha e expõe o oráculo de
// consulta (posição, tangente e valores originais) usado pela simulação e
// pelos geradores de geometria.
package curve

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewControlPoints indica menos de dois pontos de controle
var ErrTooFewControlPoints = errors.New("curve: pelo menos 2 pontos de controle são necessários")

// Spline interpola pontos de controle com Catmull-Rom uniforme, avaliado
// separadamente em cada coordenada. A curva passa por todos os pontos.
type Spline struct {
	points []Vec2
}

// NewSpline cria uma spline sobre uma cópia dos pontos de controle
func NewSpline(points []Vec2) (*Spline, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("criar spline com %d pontos: %w", len(points), ErrTooFewControlPoints)
	}

	cp := make([]Vec2, len(points))
	copy(cp, points)
	return &Spline{points: cp}, nil
}

// Points retorna uma cópia dos pontos de controle
func (s *Spline) Points() []Vec2 {
	cp := make([]Vec2, len(s.points))
	copy(cp, s.points)
	return cp
}

// PointAt avalia a curva em u. Valores fora de [0,1] são limitados ao intervalo.
func (s *Spline) PointAt(u float64) Vec2 {
	u = Clamp01(u)
	last := len(s.points) - 1

	p := float64(last) * u
	i := int(math.Floor(p))
	if i >= last {
		return s.points[last]
	}
	w := p - float64(i)

	p0 := s.points[max(i-1, 0)]
	p1 := s.points[i]
	p2 := s.points[min(i+1, last)]
	p3 := s.points[min(i+2, last)]

	return Vec2{
		X: catmullRom(w, p0.X, p1.X, p2.X, p3.X),
		Y: catmullRom(w, p0.Y, p1.Y, p2.Y, p3.Y),
	}
}

// catmullRom avalia o segmento p1..p2 com tangentes (p2-p0)/2 e (p3-p1)/2
func catmullRom(t, p0, p1, p2, p3 float64) float64 {
	v0 := (p2 - p0) * 0.5
	v1 := (p3 - p1) * 0.5
	t2 := t * t
	t3 := t * t2
	return (2*p1-2*p2+v0+v1)*t3 + (-3*p1+3*p2-2*v0-v1)*t2 + v0*t + p1
}

// Clamp01 limita x ao intervalo [0,1]
func Clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
