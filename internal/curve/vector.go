package curve

import "math"

// Vec2 é um ponto de controle no plano (x = tempo normalizado)
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 é um ponto ou direção no espaço da cena
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add soma dois vetores
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub subtrai o vetor o
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale multiplica o vetor por um escalar
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Length retorna o comprimento euclidiano
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize retorna o vetor unitário; o vetor nulo é devolvido sem alteração
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Array converte para o formato usado nas mensagens
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
