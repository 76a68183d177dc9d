package utils

import (
	"encoding/binary"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Float32ToBytes converte um valor para REAL do S7 (IEEE 754, big endian)
func Float32ToBytes(val float32) []byte {
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, math.Float32bits(val))
	return bytes
}

// BytesToFloat32 converte um REAL do S7 de volta para float32
func BytesToFloat32(bytes []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(bytes))
}

// Int32ToBytes converte um valor para DINT do S7
func Int32ToBytes(val int32) []byte {
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, uint32(val))
	return bytes
}

// BoolsToByte empacota até 8 flags em um byte (bit 0 = primeira flag)
func BoolsToByte(flags ...bool) byte {
	var b byte
	for i, f := range flags {
		if i >= 8 {
			break
		}
		if f {
			b |= 1 << uint(i)
		}
	}
	return b
}

// ToFixed formata value com digits casas decimais usando o valor binário
// exato e arredondando empates para longe de zero.
func ToFixed(value float64, digits int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	if digits < 0 {
		digits = 0
	}

	r := new(big.Rat).SetFloat64(math.Abs(value))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if m.Lsh(m, 1).Cmp(r.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}

	s := q.String()
	if digits > 0 {
		if len(s) <= digits {
			s = strings.Repeat("0", digits-len(s)+1) + s
		}
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}
	if value < 0 && strings.Trim(s, "0.") != "" {
		s = "-" + s
	}
	return s
}

// FormatFloat formata um float com precisão específica, sem zeros à direita
func FormatFloat(value float64, precision int) string {
	s := ToFixed(value, precision)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
