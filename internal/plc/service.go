package plc

import (
	"context"
	"sync"
	"time"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
	"coaster_go/internal/telemetry"
	"coaster_go/pkg/logger"
	"coaster_go/pkg/utils"
)

// Layout do bloco de dados espelhado no painel (offsets em bytes)
const (
	OffsetProgress   = 0  // REAL
	OffsetVelocity   = 4  // REAL
	OffsetMagnitude  = 8  // REAL
	OffsetPercentage = 12 // REAL
	OffsetLap        = 16 // DINT
	OffsetTick       = 20 // DINT
	OffsetFlags      = 24 // BYTE
	BlockSize        = 26
)

// Bits do byte de flags
const (
	FlagUp = iota
	FlagDown
	FlagLeft
	FlagRight
	FlagBiasLong
	FlagBiasShort
	FlagWrapped
)

// BlockWriter é o subconjunto do S7Client usado pelo serviço
type BlockWriter interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	WriteDataBlock(dbNumber, startOffset int, data []byte) error
}

// EncodeFrame serializa o quadro no layout do DB
func EncodeFrame(frame models.TelemetryFrame) []byte {
	block := make([]byte, BlockSize)
	copy(block[OffsetProgress:], utils.Float32ToBytes(float32(frame.Progress)))
	copy(block[OffsetVelocity:], utils.Float32ToBytes(float32(frame.Velocity)))
	copy(block[OffsetMagnitude:], utils.Float32ToBytes(float32(frame.Magnitude)))
	copy(block[OffsetPercentage:], utils.Float32ToBytes(float32(frame.Percentage)))
	copy(block[OffsetLap:], utils.Int32ToBytes(int32(frame.Lap)))
	copy(block[OffsetTick:], utils.Int32ToBytes(int32(frame.Tick)))

	block[OffsetFlags] = utils.BoolsToByte(
		frame.Indicators[telemetry.IndicatorUp] > 0,
		frame.Indicators[telemetry.IndicatorDown] > 0,
		frame.Indicators[telemetry.IndicatorLeft] > 0,
		frame.Indicators[telemetry.IndicatorRight] > 0,
		frame.Bias == telemetry.BiasLong,
		frame.Bias == telemetry.BiasShort,
		frame.Wrapped,
	)
	return block
}

// PLCService espelha o último quadro no DB do painel a cada UpdateRate
type PLCService struct {
	client    BlockWriter
	config    config.PLCConfig
	ctx       context.Context
	cancel    context.CancelFunc
	lastFrame *models.TelemetryFrame
	dirty     bool
	mutex     sync.RWMutex
	running   bool
	writes    int64
	failures  int64
}

// NewPLCService cria um novo serviço de PLC
func NewPLCService(cfg config.PLCConfig) *PLCService {
	return newService(cfg, NewS7Client(cfg))
}

func newService(cfg config.PLCConfig, client BlockWriter) *PLCService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PLCService{
		client: client,
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start conecta ao PLC e inicia o loop de escrita
func (s *PLCService) Start() error {
	if !s.config.Enabled {
		logger.Info("Serviço PLC desabilitado por configuração")
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		logger.Warnf("Erro na conexão inicial com o PLC: %v. Nova tentativa no próximo ciclo.", err)
	}

	go s.runUpdateLoop()

	s.running = true
	logger.Infof("Serviço PLC iniciado (DB%d, %v)", s.config.DBNumber, s.config.UpdateRate)
	return nil
}

// Stop para o serviço de comunicação com o PLC
func (s *PLCService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.client.Disconnect()
	s.running = false
	logger.Info("Serviço PLC parado")
}

// IsRunning verifica se o serviço está em execução
func (s *PLCService) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// UpdateFrame guarda o quadro mais recente; só ele é escrito no próximo ciclo
func (s *PLCService) UpdateFrame(frame models.TelemetryFrame) {
	if !s.config.Enabled {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.running {
		return
	}
	s.lastFrame = &frame
	s.dirty = true
}

// Counters retorna escritas bem-sucedidas e falhas
func (s *PLCService) Counters() (writes, failures int64) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.writes, s.failures
}

func (s *PLCService) runUpdateLoop() {
	interval := s.config.UpdateRate
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush escreve o último quadro pendente, se houver
func (s *PLCService) flush() {
	s.mutex.Lock()
	if !s.dirty || s.lastFrame == nil {
		s.mutex.Unlock()
		return
	}
	frame := *s.lastFrame
	s.dirty = false
	s.mutex.Unlock()

	err := s.client.WriteDataBlock(s.config.DBNumber, 0, EncodeFrame(frame))

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err != nil {
		s.failures++
		logger.Throttledf("plc.write", logger.ERROR, "Erro ao escrever no PLC: %v", err)
		return
	}
	s.writes++
}

// Shutdown encerra graciosamente o serviço
func (s *PLCService) Shutdown() {
	s.Stop()
}
