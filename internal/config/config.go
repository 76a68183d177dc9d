package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"coaster_go/internal/curve"
	"coaster_go/internal/simulation"
)

// ErrInvalidConfig indica um valor de configuração fora da faixa aceita
var ErrInvalidConfig = errors.New("configuração inválida")

// Arquivos procurados quando nenhum caminho é informado
var defaultFiles = []string{"config.json", "config.yaml", "config.yml"}

// envPrefix é o prefixo das variáveis de ambiente
const envPrefix = "COASTER_"

// Config representa a configuração completa da aplicação
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Source     SourceConfig     `json:"source" yaml:"source"`
	Track      TrackConfig      `json:"track" yaml:"track"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Camera     CameraConfig     `json:"camera" yaml:"camera"`
	WebSocket  WebSocketConfig  `json:"websocket" yaml:"websocket"`
	Redis      RedisConfig      `json:"redis" yaml:"redis"`
	PLC        PLCConfig        `json:"plc" yaml:"plc"`
	Discovery  DiscoveryConfig  `json:"discovery" yaml:"discovery"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdown_timeout"`
}

// SourceConfig define de onde vem a série temporal
type SourceConfig struct {
	URL         string        `json:"url" yaml:"url"`
	File        string        `json:"file" yaml:"file"` // tem prioridade sobre URL
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MaxAttempts int           `json:"maxAttempts" yaml:"max_attempts"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retry_delay"`
	MaxBytes    int64         `json:"maxBytes" yaml:"max_bytes"`
	CacheTTL    time.Duration `json:"cacheTTL" yaml:"cache_ttl"`
}

// TrackConfig contém os parâmetros de construção da trilha
type TrackConfig struct {
	Buckets         int            `json:"buckets" yaml:"buckets"`
	RatioSentinel   float64        `json:"ratioSentinel" yaml:"ratio_sentinel"`
	SampleCacheSize int            `json:"sampleCacheSize" yaml:"sample_cache_size"`
	Geometry        curve.Geometry `json:"geometry" yaml:"geometry"`
}

// SimulationConfig contém a taxa do tick e a dinâmica do veículo
type SimulationConfig struct {
	FrameRate int               `json:"frameRate" yaml:"frame_rate"`
	Dynamics  simulation.Config `json:"dynamics" yaml:"dynamics"`
}

// TickInterval retorna o período do tick
func (c SimulationConfig) TickInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FrameRate)
}

// CameraConfig contém os parâmetros da câmera enviados aos clientes
type CameraConfig struct {
	FOV  float64 `json:"fov" yaml:"fov"`
	Near float64 `json:"near" yaml:"near"`
	Far  float64 `json:"far" yaml:"far"`
}

// WebSocketConfig limita a taxa de quadros enviados aos clientes
type WebSocketConfig struct {
	BroadcastRate float64 `json:"broadcastRate" yaml:"broadcast_rate"` // quadros por segundo
	Burst         int     `json:"burst" yaml:"burst"`
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host       string `json:"host" yaml:"host"`
	Port       int    `json:"port" yaml:"port"`
	Password   string `json:"password" yaml:"password"`
	DB         int    `json:"db" yaml:"db"`
	Prefix     string `json:"prefix" yaml:"prefix"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	LapHistory int64  `json:"lapHistory" yaml:"lap_history"`
}

// PLCConfig contém configurações do painel S7 que espelha o carrinho
type PLCConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Host         string        `json:"host" yaml:"host"`
	Rack         int           `json:"rack" yaml:"rack"`
	Slot         int           `json:"slot" yaml:"slot"`
	DBNumber     int           `json:"dbNumber" yaml:"db_number"`
	UpdateRate   time.Duration `json:"updateRate" yaml:"update_rate"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"write_timeout"`
}

// DiscoveryConfig controla o anúncio mDNS
type DiscoveryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Service string `json:"service" yaml:"service"`
	Domain  string `json:"domain" yaml:"domain"`
}

// LogConfig controla nível e saída em arquivo
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	Dir   string `json:"dir" yaml:"dir"` // vazio desabilita o arquivo
}

// Load carrega a configuração do arquivo ou usa valores padrão.
// Com path vazio procura config.json, config.yaml e config.yml no diretório atual.
func Load(path string) (*Config, error) {
	config := getDefaultConfig()

	if path == "" {
		for _, candidate := range defaultFiles {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		if err := loadFile(path, &config); err != nil {
			return nil, err
		}
	}

	// Sobrescrever com variáveis de ambiente, se existirem
	if err := applyEnvironmentOverrides(&config, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadFile decodifica JSON ou YAML conforme a extensão
func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("erro ao ler %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return fmt.Errorf("erro ao decodificar %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis COASTER_*
func applyEnvironmentOverrides(config *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	integer("SERVER_PORT", &config.Server.Port)
	str("SOURCE_URL", &config.Source.URL)
	str("SOURCE_FILE", &config.Source.File)
	integer("TRACK_BUCKETS", &config.Track.Buckets)
	integer("SIMULATION_FRAME_RATE", &config.Simulation.FrameRate)
	str("REDIS_HOST", &config.Redis.Host)
	integer("REDIS_PORT", &config.Redis.Port)
	str("REDIS_PASSWORD", &config.Redis.Password)
	boolean("REDIS_ENABLED", &config.Redis.Enabled)
	str("PLC_HOST", &config.PLC.Host)
	boolean("PLC_ENABLED", &config.PLC.Enabled)
	boolean("DISCOVERY_ENABLED", &config.Discovery.Enabled)
	str("LOG_LEVEL", &config.Log.Level)
	str("LOG_DIR", &config.Log.Dir)

	return errors.Join(errs...)
}

// Validate rejeita combinações que impedem a simulação de rodar
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("porta do servidor: %d", c.Server.Port))
	}
	if c.Source.URL == "" && c.Source.File == "" {
		errs = append(errs, errors.New("source: url ou file é obrigatório"))
	}
	if c.Source.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("source.maxAttempts: %d", c.Source.MaxAttempts))
	}
	if c.Track.Buckets < 1 {
		errs = append(errs, fmt.Errorf("track.buckets: %d", c.Track.Buckets))
	}
	if c.Track.Geometry.TrackLength <= 0 || c.Track.Geometry.WorldScale <= 0 {
		errs = append(errs, errors.New("track.geometry: trackLength e worldScale devem ser positivos"))
	}
	if c.Simulation.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("simulation.frameRate: %d", c.Simulation.FrameRate))
	}
	if err := c.Simulation.Dynamics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation.dynamics: %w", err))
	}
	if c.WebSocket.BroadcastRate < 0 {
		errs = append(errs, fmt.Errorf("websocket.broadcastRate: %v", c.WebSocket.BroadcastRate))
	}
	if c.PLC.Enabled && c.PLC.UpdateRate <= 0 {
		errs = append(errs, fmt.Errorf("plc.updateRate: %v", c.PLC.UpdateRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
