// Package source carrega a série temporal de TVS de uma URL ou arquivo local
// e produz o Dataset imutável usado na construção da trilha.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
	"coaster_go/pkg/logger"
)

// Cache guarda datasets já baixados. Um miss retorna (nil, nil).
type Cache interface {
	GetDataset(ctx context.Context, key string) (*models.Dataset, error)
	PutDataset(ctx context.Context, key string, dataset *models.Dataset, ttl time.Duration) error
}

// Loader busca e valida o dataset
type Loader struct {
	config     config.SourceConfig
	httpClient *http.Client
	cache      Cache
}

// NewLoader cria um Loader. cache pode ser nil.
func NewLoader(cfg config.SourceConfig, cache Cache) *Loader {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Loader{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: cache,
	}
}

// Origin retorna o arquivo ou a URL usada pelo Loader
func (l *Loader) Origin() string {
	if l.config.File != "" {
		return l.config.File
	}
	return l.config.URL
}

// Load retorna o dataset do cache ou da origem, com novas tentativas para
// falhas de transporte. Payloads malformados não são repetidos.
func (l *Loader) Load(ctx context.Context) (*models.Dataset, error) {
	origin := l.Origin()
	if origin == "" {
		return nil, ErrNoOrigin
	}

	key := cacheKey(origin)
	if l.cache != nil {
		cached, err := l.cache.GetDataset(ctx, key)
		if err != nil {
			logger.Warnf("Erro ao consultar cache do dataset: %v", err)
		} else if cached != nil && cached.Len() >= MinSamples {
			logger.Infof("Dataset carregado do cache (%d amostras, %s)", cached.Len(), cached.Fingerprint)
			return cached, nil
		}
	}

	var body []byte
	var lastErr error
	for attempt := 1; attempt <= l.config.MaxAttempts; attempt++ {
		body, lastErr = l.fetch(ctx)
		if lastErr == nil {
			break
		}
		if errors.Is(lastErr, ErrPayloadTooLarge) || ctx.Err() != nil {
			return nil, lastErr
		}

		logger.Warnf("Falha ao obter dataset de %s: %v. Tentativa %d/%d",
			origin, lastErr, attempt, l.config.MaxAttempts)

		if attempt < l.config.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.config.RetryDelay):
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("obter dataset após %d tentativas: %w", l.config.MaxAttempts, lastErr)
	}

	samples, err := Decode(body)
	if err != nil {
		return nil, err
	}

	dataset := &models.Dataset{
		Samples:     samples,
		Fingerprint: Fingerprint(body),
		Origin:      origin,
		FetchedAt:   time.Now(),
	}

	if l.cache != nil {
		if err := l.cache.PutDataset(ctx, key, dataset, l.config.CacheTTL); err != nil {
			logger.Warnf("Erro ao gravar dataset no cache: %v", err)
		}
	}

	logger.Infof("Dataset carregado de %s (%d amostras, %s)", origin, dataset.Len(), dataset.Fingerprint)
	return dataset, nil
}

// fetch lê o corpo bruto do arquivo ou da URL
func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	if l.config.File != "" {
		f, err := os.Open(l.config.File)
		if err != nil {
			return nil, fmt.Errorf("abrir %s: %w", l.config.File, err)
		}
		defer f.Close()
		return l.readLimited(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("criar requisição: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requisição GET %s: %w", l.config.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	return l.readLimited(resp.Body)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	if l.config.MaxBytes <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, l.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("ler payload: %w", err)
	}
	if int64(len(body)) > l.config.MaxBytes {
		return nil, fmt.Errorf("%w: mais de %d bytes", ErrPayloadTooLarge, l.config.MaxBytes)
	}
	return body, nil
}
