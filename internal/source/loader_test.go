package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
	"coaster_go/internal/source"
)

const payload = `[
	{"timestamp": 0, "total_value_secured": 10, "total_value_secured_long": 1, "total_value_secured_short": 1},
	{"timestamp": 50, "total_value_secured": 20, "total_value_secured_long": 2, "total_value_secured_short": 1},
	{"timestamp": 100, "total_value_secured": 30, "total_value_secured_long": 1, "total_value_secured_short": 2}
]`

func sourceConfig(url string) config.SourceConfig {
	return config.SourceConfig{
		URL:         url,
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		MaxBytes:    1 << 20,
		CacheTTL:    time.Minute,
	}
}

// memoryCache implementa source.Cache em memória
type memoryCache struct {
	mu   sync.Mutex
	data map[string]*models.Dataset
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		data: make(map[string]*models.Dataset),
		ttls: make(map[string]time.Duration),
	}
}

func (m *memoryCache) GetDataset(_ context.Context, key string) (*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryCache) PutDataset(_ context.Context, key string, ds *models.Dataset, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = ds
	m.ttls[key] = ttl
	return nil
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	ds, err := source.NewLoader(sourceConfig(srv.URL), nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, int64(50), ds.Samples[1].Timestamp)
	assert.Equal(t, 20.0, ds.Samples[1].Magnitude)
	assert.Equal(t, 2.0, ds.Samples[1].LongPortion)
	assert.Equal(t, source.Fingerprint([]byte(payload)), ds.Fingerprint)
	assert.Len(t, ds.Fingerprint, 16)
	assert.Equal(t, srv.URL, ds.Origin)
}

func TestLoad_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	ds, err := source.NewLoader(sourceConfig(srv.URL), nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoad_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := source.NewLoader(sourceConfig(srv.URL), nil).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrHTTPStatus)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoad_Malformed(t *testing.T) {
	cases := map[string]string{
		"não é json":       `<html>`,
		"objeto":           `{"data": []}`,
		"uma amostra":      `[{"timestamp": 1, "total_value_secured": 1, "total_value_secured_long": 1, "total_value_secured_short": 1}]`,
		"vazio":            `[]`,
		"valor negativo":   `[{"timestamp": 1, "total_value_secured": -1}, {"timestamp": 2, "total_value_secured": 1}]`,
		"tipo incorreto":   `[{"timestamp": "ontem"}, {"timestamp": 2}]`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := source.NewLoader(sourceConfig(srv.URL), nil).Load(context.Background())
			assert.ErrorIs(t, err, source.ErrMalformedDataset)
			assert.Equal(t, int32(1), calls.Load(), "payload malformado não é repetido")
		})
	}
}

func TestLoad_PayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	cfg := sourceConfig(srv.URL)
	cfg.MaxBytes = 16
	_, err := source.NewLoader(cfg, nil).Load(context.Background())
	assert.ErrorIs(t, err, source.ErrPayloadTooLarge)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tvs.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg := sourceConfig("http://nao-usado.invalid")
	cfg.File = path
	loader := source.NewLoader(cfg, nil)
	assert.Equal(t, path, loader.Origin())

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, path, ds.Origin)
}

func TestLoad_NoOrigin(t *testing.T) {
	_, err := source.NewLoader(config.SourceConfig{}, nil).Load(context.Background())
	assert.ErrorIs(t, err, source.ErrNoOrigin)
}

func TestLoad_Cache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	loader := source.NewLoader(sourceConfig(srv.URL), cache)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	require.Len(t, cache.ttls, 1)
	for _, ttl := range cache.ttls {
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestLoad_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := sourceConfig(srv.URL)
	cfg.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := source.NewLoader(cfg, nil).Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
