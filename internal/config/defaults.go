package config

import (
	"time"

	"coaster_go/internal/curve"
	"coaster_go/internal/series"
	"coaster_go/internal/simulation"
)

// DefaultSourceURL retorna 500 pontos do histórico de TVS da Arbitrum
const DefaultSourceURL = "https://api.reputation.link/protocol/tracer/TVS?dataPoints=500&source=Arbitrum"

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			URL:         DefaultSourceURL,
			Timeout:     15 * time.Second,
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
			MaxBytes:    32 << 20,
			CacheTTL:    time.Hour,
		},
		Track: TrackConfig{
			Buckets:         series.DefaultBuckets,
			RatioSentinel:   series.DefaultRatioSentinel,
			SampleCacheSize: 16,
			Geometry:        curve.DefaultGeometry(),
		},
		Simulation: SimulationConfig{
			FrameRate: 60,
			Dynamics:  simulation.DefaultConfig(),
		},
		Camera: CameraConfig{
			FOV:  50,
			Near: 0.1,
			Far:  500,
		},
		WebSocket: WebSocketConfig{
			BroadcastRate: 30,
			Burst:         1,
		},
		Redis: RedisConfig{
			Host:       "localhost",
			Port:       6379,
			Password:   "",
			DB:         0,
			Prefix:     "coaster",
			Enabled:    true,
			LapHistory: 100,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     20,
			UpdateRate:   100 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Service: "_coaster._tcp",
			Domain:  "local.",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Default retorna a configuração padrão sem ler arquivo nem ambiente
func Default() Config {
	return getDefaultConfig()
}
