package plc

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
	"coaster_go/internal/telemetry"
	"coaster_go/pkg/utils"
)

type fakeWriter struct {
	mu        sync.Mutex
	connected bool
	blocks    [][]byte
	dbs       []int
	fail      bool
}

func (f *fakeWriter) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeWriter) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeWriter) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeWriter) WriteDataBlock(dbNumber, startOffset int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("conexão recusada")
	}
	f.dbs = append(f.dbs, dbNumber)
	f.blocks = append(f.blocks, append([]byte(nil), data...))
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blocks)
}

func sampleFrame() models.TelemetryFrame {
	return models.TelemetryFrame{
		Tick:       1234,
		Lap:        3,
		Progress:   0.5,
		Velocity:   0.00025,
		Magnitude:  1_500_000,
		Percentage: 58.33,
		Wrapped:    true,
		Indicators: map[string]float64{
			telemetry.IndicatorUp:    1,
			telemetry.IndicatorDown:  0,
			telemetry.IndicatorLeft:  0,
			telemetry.IndicatorRight: 1,
		},
		Bias: telemetry.BiasLong,
	}
}

func TestEncodeFrame(t *testing.T) {
	block := EncodeFrame(sampleFrame())
	require.Len(t, block, BlockSize)

	assert.Equal(t, float32(0.5), utils.BytesToFloat32(block[OffsetProgress:OffsetProgress+4]))
	assert.Equal(t, float32(0.00025), utils.BytesToFloat32(block[OffsetVelocity:OffsetVelocity+4]))
	assert.Equal(t, float32(1_500_000), utils.BytesToFloat32(block[OffsetMagnitude:OffsetMagnitude+4]))
	assert.Equal(t, float32(58.33), utils.BytesToFloat32(block[OffsetPercentage:OffsetPercentage+4]))
	assert.Equal(t, utils.Int32ToBytes(3), block[OffsetLap:OffsetLap+4])
	assert.Equal(t, utils.Int32ToBytes(1234), block[OffsetTick:OffsetTick+4])

	flags := block[OffsetFlags]
	assert.NotZero(t, flags&(1<<FlagUp))
	assert.Zero(t, flags&(1<<FlagDown))
	assert.Zero(t, flags&(1<<FlagLeft))
	assert.NotZero(t, flags&(1<<FlagRight))
	assert.NotZero(t, flags&(1<<FlagBiasLong))
	assert.Zero(t, flags&(1<<FlagBiasShort))
	assert.NotZero(t, flags&(1<<FlagWrapped))
}

func TestEncodeFrame_EmptyIndicators(t *testing.T) {
	block := EncodeFrame(models.TelemetryFrame{})
	assert.Equal(t, byte(0), block[OffsetFlags])
}

func enabledConfig() config.PLCConfig {
	cfg := config.Default().PLC
	cfg.Enabled = true
	cfg.UpdateRate = 5 * time.Millisecond
	return cfg
}

func TestPLCService_WritesLatestFrame(t *testing.T) {
	writer := &fakeWriter{}
	svc := newService(enabledConfig(), writer)
	require.NoError(t, svc.Start())
	defer svc.Stop()
	assert.True(t, writer.IsConnected())

	frame := sampleFrame()
	svc.UpdateFrame(frame)

	assert.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, time.Millisecond)

	// sem quadro novo nada é reescrito
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, writer.count())

	writer.mu.Lock()
	assert.Equal(t, 20, writer.dbs[0])
	assert.Equal(t, EncodeFrame(frame), writer.blocks[0])
	writer.mu.Unlock()

	writes, failures := svc.Counters()
	assert.Equal(t, int64(1), writes)
	assert.Zero(t, failures)
}

func TestPLCService_CountsFailures(t *testing.T) {
	writer := &fakeWriter{fail: true}
	svc := newService(enabledConfig(), writer)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	svc.UpdateFrame(sampleFrame())
	assert.Eventually(t, func() bool {
		_, failures := svc.Counters()
		return failures == 1
	}, time.Second, time.Millisecond)
}

func TestPLCService_Disabled(t *testing.T) {
	writer := &fakeWriter{}
	svc := newService(config.Default().PLC, writer)
	require.NoError(t, svc.Start())
	assert.False(t, svc.IsRunning())

	svc.UpdateFrame(sampleFrame())
	svc.flush()
	assert.Zero(t, writer.count())
}

func TestPLCService_Stop(t *testing.T) {
	writer := &fakeWriter{}
	svc := newService(enabledConfig(), writer)
	require.NoError(t, svc.Start())
	svc.Stop()
	svc.Stop()

	assert.False(t, svc.IsRunning())
	assert.False(t, writer.IsConnected())

	svc.UpdateFrame(sampleFrame())
	svc.flush()
	assert.Zero(t, writer.count())
}
