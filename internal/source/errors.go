package source

import "errors"

var (
	// ErrMalformedDataset indica um payload que não é um array de amostras válido
	ErrMalformedDataset = errors.New("source: dataset malformado")

	// ErrHTTPStatus indica resposta HTTP diferente de 200
	ErrHTTPStatus = errors.New("source: status HTTP inesperado")

	// ErrPayloadTooLarge indica um corpo maior que MaxBytes
	ErrPayloadTooLarge = errors.New("source: payload excede o limite")

	// ErrNoOrigin indica que nem URL nem arquivo foram configurados
	ErrNoOrigin = errors.New("source: nenhuma origem configurada")
)
