package coaster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"coaster_go/internal/config"
	"coaster_go/internal/curve"
	"coaster_go/internal/models"
	"coaster_go/internal/series"
	"coaster_go/pkg/logger"
	"coaster_go/pkg/utils"
)

// ErrNotReady indica que a trilha ainda não foi construída
var ErrNotReady = errors.New("coaster: trilha ainda não carregada")

// storeInterval limita a escrita de quadros no Redis
const storeInterval = 100 * time.Millisecond

// FrameHandler recebe cada quadro publicado
type FrameHandler func(frame models.TelemetryFrame)

// DatasetLoader produz o dataset inicial
type DatasetLoader interface {
	Load(ctx context.Context) (*models.Dataset, error)
}

// Publisher envia quadros, voltas e status para os clientes conectados
type Publisher interface {
	BroadcastFrame(frame models.TelemetryFrame) bool
	BroadcastLap(lap models.LapRecord)
	BroadcastStatus(status models.CoasterStatus)
}

// Store persiste o estado publicado
type Store interface {
	IsConnected() bool
	WriteFrame(frame *models.TelemetryFrame) error
	WriteLap(lap models.LapRecord) error
	WriteStatus(status models.CoasterStatus) error
}

// Stats resume o desempenho do loop de simulação
type Stats struct {
	RunID           string        `json:"runId"`
	StartedAt       time.Time     `json:"startedAt"`
	TotalTicks      int64         `json:"totalTicks"`
	Laps            int64         `json:"laps"`
	AvgTickDuration time.Duration `json:"avgTickDuration"`
	FramesSkipped   int64         `json:"framesSkipped"`
}

// Service carrega o dataset, constrói a trilha e executa a simulação
type Service struct {
	loader    DatasetLoader
	publisher Publisher
	store     Store
	track     config.TrackConfig
	sim       config.SimulationConfig

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mutex   sync.RWMutex

	status     models.CoasterStatus
	errorCount int
	lastFrame  *models.TelemetryFrame
	curve      *curve.Track
	reduced    []series.Sample
	dataset    *models.Dataset

	handlers     []FrameHandler
	handlersLock sync.RWMutex

	samples      *lru.Cache
	storeLimiter *rate.Limiter
	storing      atomic.Bool

	stats struct {
		runID           string
		startedAt       time.Time
		totalTicks      int64
		laps            int64
		framesSkipped   int64
		tickDurations   []time.Duration
		avgTickDuration time.Duration
	}
	statsLock sync.Mutex
}

// NewService cria o serviço. publisher e store podem ser nil.
func NewService(cfg *config.Config, loader DatasetLoader, publisher Publisher, store Store) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuração nula: %w", config.ErrInvalidConfig)
	}
	if loader == nil {
		return nil, errors.New("coaster: loader obrigatório")
	}

	size := cfg.Track.SampleCacheSize
	if size <= 0 {
		size = 1
	}
	samples, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("criar cache de amostras: %w", err)
	}

	s := &Service{
		loader:       loader,
		publisher:    publisher,
		store:        store,
		track:        cfg.Track,
		sim:          cfg.Simulation,
		samples:      samples,
		storeLimiter: rate.NewLimiter(rate.Every(storeInterval), 1),
		status: models.CoasterStatus{
			Status:    models.StatusInitializing,
			Timestamp: time.Now(),
		},
	}
	s.stats.tickDurations = make([]time.Duration, 0, 100)
	return s, nil
}

// Start inicia o carregamento assíncrono seguido do loop de simulação
func (s *Service) Start() error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	ctx := s.ctx
	s.mutex.Unlock()

	s.statsLock.Lock()
	s.stats.runID = uuid.New().String()
	s.stats.startedAt = time.Now()
	s.statsLock.Unlock()

	logger.Infof("Iniciando simulação (%d fps, %d grupos)", s.sim.FrameRate, s.track.Buckets)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	return nil
}

// Stop encerra o loop e aguarda as goroutines
func (s *Service) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	logger.Info("Parando simulação")
	s.cancel()
	s.running = false
	s.mutex.Unlock()

	s.wg.Wait()
	s.updateStatus(models.StatusStopped, "")
}

// IsRunning verifica se o serviço está em execução
func (s *Service) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// RegisterFrameHandler registra uma função chamada a cada quadro
func (s *Service) RegisterFrameHandler(handler FrameHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.handlers = append(s.handlers, handler)
}

// GetStatus retorna o status atual
func (s *Service) GetStatus() models.CoasterStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status
}

// GetLastFrame retorna uma cópia do último quadro publicado
func (s *Service) GetLastFrame() *models.TelemetryFrame {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastFrame == nil {
		return nil
	}
	frame := *s.lastFrame
	return &frame
}

// GetTrack retorna a trilha construída ou ErrNotReady
func (s *Service) GetTrack() (*curve.Track, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.curve == nil {
		return nil, ErrNotReady
	}
	return s.curve, nil
}

// Dataset retorna o dataset carregado
func (s *Service) Dataset() (*models.Dataset, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.dataset == nil {
		return nil, ErrNotReady
	}
	return s.dataset, nil
}

// ControlPoints retorna a série reduzida usada como pontos de controle
func (s *Service) ControlPoints() ([]models.ControlPoint, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.curve == nil {
		return nil, ErrNotReady
	}

	points := make([]models.ControlPoint, len(s.reduced))
	for i, p := range s.reduced {
		points[i] = models.ControlPoint{T: p.T, V: p.V, Ratio: p.Ratio}
	}
	return points, nil
}

// TrackSample amostra a trilha em segments intervalos. O resultado fica em
// cache por número de segmentos e não deve ser alterado pelo chamador.
func (s *Service) TrackSample(segments int) ([]models.TrackPoint, error) {
	track, err := s.GetTrack()
	if err != nil {
		return nil, err
	}

	if segments <= 0 {
		segments = curve.RailSegments
	}
	segments = min(segments, curve.MaxSampleSegments)

	if cached, ok := s.samples.Get(segments); ok {
		return cached.([]models.TrackPoint), nil
	}

	path := curve.Sample(track, segments)
	points := make([]models.TrackPoint, len(path))
	for i, p := range path {
		points[i] = models.TrackPoint{
			T:        p.T,
			Position: p.Position.Array(),
			Tangent:  p.Tangent.Array(),
		}
	}
	s.samples.Add(segments, points)
	return points, nil
}

// Stats retorna as estatísticas do loop
func (s *Service) Stats() Stats {
	s.statsLock.Lock()
	defer s.statsLock.Unlock()
	return Stats{
		RunID:           s.stats.runID,
		StartedAt:       s.stats.startedAt,
		TotalTicks:      s.stats.totalTicks,
		Laps:            s.stats.laps,
		AvgTickDuration: s.stats.avgTickDuration,
		FramesSkipped:   s.stats.framesSkipped,
	}
}

// run carrega o dataset e, se tudo correr bem, entra no loop de ticks
func (s *Service) run(ctx context.Context) {
	s.updateStatus(models.StatusLoading, "")

	dataset, err := s.loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.fail(fmt.Errorf("carregar dataset: %w", err))
		return
	}

	track, reduced, err := BuildTrack(dataset, s.track)
	if err != nil {
		s.fail(err)
		return
	}

	s.mutex.Lock()
	s.curve = track
	s.reduced = reduced
	s.dataset = dataset
	s.errorCount = 0
	s.mutex.Unlock()
	s.samples.Purge()

	logger.Infof("Trilha construída: %d amostras, %d pontos de controle (origem %s)",
		dataset.Len(), len(reduced), dataset.Origin)
	s.updateStatus(models.StatusRunning, "")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitorStats(ctx)
	}()

	s.simulate(ctx, NewEngine(track, s.sim.Dynamics))
}

func (s *Service) fail(err error) {
	s.mutex.Lock()
	s.errorCount++
	s.mutex.Unlock()

	logger.Error("Falha ao preparar a trilha", err)
	s.updateStatus(models.StatusFailed, err.Error())
}

// simulate executa um tick por intervalo até o contexto ser cancelado
func (s *Service) simulate(ctx context.Context, engine *Engine) {
	ticker := time.NewTicker(s.sim.TickInterval())
	defer ticker.Stop()

	last := time.Now()
	lapStart := last
	var lapStartTick int64

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			start := time.Now()
			delta := now.Sub(last)
			last = now

			frame := engine.Tick(delta, now)
			s.processFrame(frame)

			if frame.Wrapped {
				lap := models.LapRecord{
					Lap:      frame.Lap,
					Ticks:    frame.Tick - lapStartTick,
					Duration: now.Sub(lapStart),
					EndedAt:  now,
				}
				lapStart, lapStartTick = now, frame.Tick
				s.processLap(lap)
			}

			s.recordTick(time.Since(start))
		}
	}
}

// processFrame publica o quadro: WebSocket, handlers e por último Redis
func (s *Service) processFrame(frame models.TelemetryFrame) {
	s.mutex.Lock()
	s.lastFrame = &frame
	s.mutex.Unlock()

	if s.publisher != nil && !s.publisher.BroadcastFrame(frame) {
		s.statsLock.Lock()
		s.stats.framesSkipped++
		s.statsLock.Unlock()
	}

	s.notifyFrameHandlers(frame)

	if s.store == nil || !s.store.IsConnected() || !s.storeLimiter.Allow() {
		return
	}
	if !s.storing.CompareAndSwap(false, true) {
		return
	}
	go func(f models.TelemetryFrame) {
		defer s.storing.Store(false)
		if err := s.store.WriteFrame(&f); err != nil {
			logger.Throttledf("coaster.redis.frame", logger.ERROR, "Erro ao escrever quadro no Redis: %v", err)
		}
	}(frame)
}

func (s *Service) processLap(lap models.LapRecord) {
	s.statsLock.Lock()
	s.stats.laps++
	s.statsLock.Unlock()

	logger.Infof("Volta %d concluída em %v (%d ticks)", lap.Lap, lap.Duration.Round(time.Millisecond), lap.Ticks)

	if s.publisher != nil {
		s.publisher.BroadcastLap(lap)
	}
	if s.store != nil && s.store.IsConnected() {
		go func() {
			if err := s.store.WriteLap(lap); err != nil {
				logger.Errorf("Erro ao registrar volta no Redis: %v", err)
			}
		}()
	}
}

func (s *Service) notifyFrameHandlers(frame models.TelemetryFrame) {
	s.handlersLock.RLock()
	handlers := s.handlers
	s.handlersLock.RUnlock()

	for _, handler := range handlers {
		handler(frame)
	}
}

// updateStatus atualiza o status e o propaga para Redis e WebSocket
func (s *Service) updateStatus(status string, errorMsg string) {
	s.mutex.Lock()
	s.status = models.CoasterStatus{
		Status:     status,
		Timestamp:  time.Now(),
		LastError:  errorMsg,
		ErrorCount: s.errorCount,
	}
	if s.dataset != nil {
		s.status.Fingerprint = s.dataset.Fingerprint
		s.status.Samples = s.dataset.Len()
	}
	current := s.status
	s.mutex.Unlock()

	if s.store != nil && s.store.IsConnected() {
		if err := s.store.WriteStatus(current); err != nil {
			logger.Errorf("Erro ao escrever status no Redis: %v", err)
		}
	}
	if s.publisher != nil {
		s.publisher.BroadcastStatus(current)
	}

	if status == models.StatusFailed {
		logger.Warnf("Status alterado para %s: %s", status, errorMsg)
	} else {
		logger.Infof("Status alterado para %s", status)
	}
}

func (s *Service) recordTick(d time.Duration) {
	s.statsLock.Lock()
	defer s.statsLock.Unlock()

	s.stats.totalTicks++
	s.stats.tickDurations = append(s.stats.tickDurations, d)
	if len(s.stats.tickDurations) > 100 {
		s.stats.tickDurations = s.stats.tickDurations[1:]
	}

	var sum time.Duration
	for _, v := range s.stats.tickDurations {
		sum += v
	}
	s.stats.avgTickDuration = sum / time.Duration(len(s.stats.tickDurations))
}

// monitorStats registra estatísticas de desempenho a cada minuto
func (s *Service) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.Stats()
			logger.Infof("Estatísticas da simulação (em execução há %s): %d ticks, %d voltas, duração média: %v, quadros não enviados: %d",
				utils.FormatDuration(time.Since(st.StartedAt)), st.TotalTicks, st.Laps, st.AvgTickDuration, st.FramesSkipped)
		}
	}
}
