package curve

// Quantidade de segmentos usada por cada gerador de geometria da cena
const (
	RailSegments      = 600
	ShadowSegments    = 500
	LifterSegments    = 50
	MaxSampleSegments = 10000
)

// PathPoint é uma amostra do oráculo em t
type PathPoint struct {
	T        float64 `json:"t"`
	Position Vec3    `json:"position"`
	Tangent  Vec3    `json:"tangent"`
}

// Sample percorre o oráculo em segments intervalos iguais (segments+1 pontos).
// Só depende de PositionAt e TangentAt.
func Sample(o Oracle, segments int) []PathPoint {
	if segments <= 0 {
		segments = RailSegments
	}
	if segments > MaxSampleSegments {
		segments = MaxSampleSegments
	}

	out := make([]PathPoint, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		out[i] = PathPoint{
			T:        t,
			Position: o.PositionAt(t),
			Tangent:  o.TangentAt(t),
		}
	}
	return out
}
