package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
	"coaster_go/pkg/logger"
)

// ErrUnavailable indica Redis desabilitado ou sem conexão
var ErrUnavailable = errors.New("Redis não conectado ou desabilitado")

// Service gerencia a conexão e operações com o Redis
type Service struct {
	client    *redis.Client
	ctx       context.Context
	cancel    context.CancelFunc
	prefix    string
	config    config.RedisConfig
	connected bool
	mutex     sync.RWMutex

	lapHistory int64
}

// NewService cria um novo serviço Redis. Sem conexão o serviço funciona em
// modo offline e todas as escritas viram no-op.
func NewService(cfg config.RedisConfig) (*Service, error) {
	lapHistory := cfg.LapHistory
	if lapHistory <= 0 {
		lapHistory = 100
	}

	if !cfg.Enabled {
		logger.Info("Serviço Redis desabilitado por configuração")
		return &Service{
			config:     cfg,
			prefix:     cfg.Prefix,
			connected:  false,
			lapHistory: lapHistory,
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	service := &Service{
		client:     client,
		ctx:        ctx,
		cancel:     cancel,
		prefix:     cfg.Prefix,
		config:     cfg,
		lapHistory: lapHistory,
	}

	if err := service.TestConnection(); err != nil {
		logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
		return service, nil
	}

	return service, nil
}

// TestConnection testa a conexão com o Redis
func (s *Service) TestConnection() error {
	if !s.config.Enabled || s.client == nil {
		return fmt.Errorf("serviço Redis desabilitado")
	}

	result, err := s.client.Ping(s.ctx).Result()
	if err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	logger.Infof("Conexão com o Redis estabelecida. Resposta: %s", result)
	s.setConnected(true)
	return nil
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.connected && s.config.Enabled
}

func (s *Service) setConnected(connected bool) {
	s.mutex.Lock()
	s.connected = connected
	s.mutex.Unlock()
}

// key monta a chave com o prefixo configurado
func (s *Service) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// GetDataset busca um dataset em cache. Um miss retorna (nil, nil).
func (s *Service) GetDataset(ctx context.Context, key string) (*models.Dataset, error) {
	if !s.IsConnected() {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao ler dataset do Redis: %w", err)
	}

	var ds models.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("dataset em cache inválido: %w", err)
	}
	ds.Origin = "redis:" + ds.Origin
	return &ds, nil
}

// PutDataset grava o dataset com expiração
func (s *Service) PutDataset(ctx context.Context, key string, dataset *models.Dataset, ttl time.Duration) error {
	if !s.IsConnected() || dataset == nil {
		return nil
	}

	raw, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("erro ao codificar dataset: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(key), raw, ttl)
	pipe.Set(ctx, s.key("fingerprint"), dataset.Fingerprint, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao gravar dataset no Redis: %w", err)
	}
	return nil
}

// WriteFrame grava o último quadro e os valores escalares do carrinho
func (s *Service) WriteFrame(frame *models.TelemetryFrame) error {
	if !s.IsConnected() || frame == nil {
		return nil
	}

	raw, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("erro ao codificar quadro: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, s.key("frame"), raw, 0)
	pipe.Set(s.ctx, s.key("progress"), frame.Progress, 0)
	pipe.Set(s.ctx, s.key("velocity"), frame.Velocity, 0)
	pipe.Set(s.ctx, s.key("magnitude"), frame.Magnitude, 0)
	pipe.Set(s.ctx, s.key("percentage"), frame.Percentage, 0)
	pipe.Set(s.ctx, s.key("timestamp"), frame.Time.UnixMilli(), 0)

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever quadro no Redis: %w", err)
	}
	return nil
}

// WriteLap adiciona a volta ao histórico, mantendo as últimas lapHistory
func (s *Service) WriteLap(lap models.LapRecord) error {
	if !s.IsConnected() {
		return nil
	}

	raw, err := json.Marshal(lap)
	if err != nil {
		return fmt.Errorf("erro ao codificar volta: %w", err)
	}

	lapsKey := s.key("laps")
	pipe := s.client.Pipeline()
	pipe.ZAdd(s.ctx, lapsKey, &redis.Z{
		Score:  float64(lap.EndedAt.UnixMilli()),
		Member: string(raw),
	})
	pipe.ZRemRangeByRank(s.ctx, lapsKey, 0, -(s.lapHistory + 1))
	pipe.Incr(s.ctx, s.key("lap_count"))

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever volta no Redis: %w", err)
	}

	logger.Debugf("Volta %d registrada no Redis (%d ticks)", lap.Lap, lap.Ticks)
	return nil
}

// WriteStatus escreve o status do serviço no Redis
func (s *Service) WriteStatus(status models.CoasterStatus) error {
	if !s.IsConnected() {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, s.key("status"), status.Status, 0)
	pipe.Set(s.ctx, s.key("status_timestamp"), status.Timestamp.UnixMilli(), 0)

	if status.LastError != "" {
		pipe.Set(s.ctx, s.key("last_error"), status.LastError, 0)
	} else {
		pipe.Del(s.ctx, s.key("last_error"))
	}
	pipe.Set(s.ctx, s.key("error_count"), status.ErrorCount, 0)

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever status no Redis: %w", err)
	}
	return nil
}

// GetStatus obtém o último status gravado
func (s *Service) GetStatus() (*models.CoasterStatus, error) {
	if !s.IsConnected() {
		return nil, ErrUnavailable
	}

	statusCmd := s.client.Get(s.ctx, s.key("status"))
	if statusCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter status: %w", statusCmd.Err())
	}

	status := &models.CoasterStatus{
		Status:    statusCmd.Val(),
		Timestamp: time.Now(),
	}

	if ts, err := s.client.Get(s.ctx, s.key("status_timestamp")).Int64(); err == nil {
		status.Timestamp = time.UnixMilli(ts)
	}
	if msg, err := s.client.Get(s.ctx, s.key("last_error")).Result(); err == nil {
		status.LastError = msg
	}
	if count, err := s.client.Get(s.ctx, s.key("error_count")).Int(); err == nil {
		status.ErrorCount = count
	}
	if fp, err := s.client.Get(s.ctx, s.key("fingerprint")).Result(); err == nil {
		status.Fingerprint = fp
	}

	return status, nil
}

// GetLatestFrame obtém o último quadro publicado
func (s *Service) GetLatestFrame() (*models.TelemetryFrame, error) {
	if !s.IsConnected() {
		return nil, ErrUnavailable
	}

	raw, err := s.client.Get(s.ctx, s.key("frame")).Bytes()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter quadro: %w", err)
	}

	var frame models.TelemetryFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("quadro inválido no Redis: %w", err)
	}
	return &frame, nil
}

// GetLaps obtém as voltas mais recentes, da mais nova para a mais antiga
func (s *Service) GetLaps(limit int64) ([]models.LapRecord, error) {
	if !s.IsConnected() {
		return nil, ErrUnavailable
	}
	if limit <= 0 || limit > s.lapHistory {
		limit = s.lapHistory
	}

	members, err := s.client.ZRevRange(s.ctx, s.key("laps"), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter voltas: %w", err)
	}

	laps := make([]models.LapRecord, 0, len(members))
	for _, m := range members {
		var lap models.LapRecord
		if err := json.Unmarshal([]byte(m), &lap); err != nil {
			continue
		}
		laps = append(laps, lap)
	}
	return laps, nil
}

// GetLapCount retorna o total de voltas já registradas
func (s *Service) GetLapCount() (int64, error) {
	if !s.IsConnected() {
		return 0, ErrUnavailable
	}

	n, err := s.client.Get(s.ctx, s.key("lap_count")).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("erro ao obter contador de voltas: %w", err)
	}
	return strconv.ParseInt(n, 10, 64)
}

// Shutdown encerra graciosamente o serviço Redis
func (s *Service) Shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Errorf("Erro ao fechar conexão com Redis: %v", err)
		} else {
			logger.Info("Conexão com o Redis fechada")
		}
	}

	s.connected = false
}
