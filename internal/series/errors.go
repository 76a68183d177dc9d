package series

import "errors"

var (
	// ErrInsufficientSamples indica uma série com menos de duas amostras.
	ErrInsufficientSamples = errors.New("series: pelo menos 2 amostras são necessárias")

	// ErrNegativeValue indica magnitude ou parcela negativa na entrada.
	ErrNegativeValue = errors.New("series: valor negativo na amostra")
)
