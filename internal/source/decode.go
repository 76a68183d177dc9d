package source

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"coaster_go/internal/models"
)

// MinSamples é o menor dataset que gera uma trilha
const MinSamples = 2

// Decode converte o payload bruto em amostras e valida o formato
func Decode(body []byte) ([]models.RawSample, error) {
	var samples []models.RawSample
	if err := json.Unmarshal(body, &samples); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
	}

	if len(samples) < MinSamples {
		return nil, fmt.Errorf("%w: %d amostras, mínimo %d", ErrMalformedDataset, len(samples), MinSamples)
	}

	for i, s := range samples {
		if s.Magnitude < 0 || s.LongPortion < 0 || s.ShortPortion < 0 {
			return nil, fmt.Errorf("%w: valor negativo na amostra %d", ErrMalformedDataset, i)
		}
	}

	return samples, nil
}

// Fingerprint retorna o xxhash64 do payload em hexadecimal
func Fingerprint(body []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(body))
}

// cacheKey identifica uma origem no cache
func cacheKey(origin string) string {
	return "dataset:" + strconv.FormatUint(xxhash.Sum64String(origin), 16)
}
