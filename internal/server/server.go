package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"coaster_go/internal/coaster"
	"coaster_go/internal/config"
	"coaster_go/internal/discovery"
	"coaster_go/internal/plc"
	"coaster_go/internal/redis"
	"coaster_go/internal/source"
	"coaster_go/internal/websocket"
	"coaster_go/pkg/logger"
	"coaster_go/pkg/utils"
)

// Version é a versão anunciada em /info e no mDNS
const Version = "1.0.0"

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	coasterService   *coaster.Service
	redisService     *redis.Service
	plcService       *plc.PLCService
	wsHub            *websocket.Hub
	discoveryService *discovery.DiscoveryService
	serverInfo       ServerInfo
	shutdownOnce     sync.Once
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string    `json:"ip"`
	Port         int       `json:"port"`
	StartTime    time.Time `json:"startTime"`
	Connections  int       `json:"connections"`
	Version      string    `json:"version"`
	WebSocketURL string    `json:"websocket"`
	APIURL       string    `json:"api"`
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuração nula: %w", config.ErrInvalidConfig)
	}

	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   Version,
			Port:      cfg.Server.Port,
			IP:        localIP(),
		},
	}
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", server.serverInfo.IP, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", server.serverInfo.IP, cfg.Server.Port)

	if err := server.initComponents(); err != nil {
		return nil, err
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents inicializa todos os componentes do servidor
func (s *Server) initComponents() error {
	s.wsHub = websocket.NewHub(s.config.WebSocket, s.config.Camera)
	go s.wsHub.Run()

	redisService, err := redis.NewService(s.config.Redis)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço Redis: %w", err)
	}
	s.redisService = redisService

	loader := source.NewLoader(s.config.Source, s.redisService)

	coasterService, err := coaster.NewService(s.config, loader, s.wsHub, s.redisService)
	if err != nil {
		return fmt.Errorf("erro ao inicializar simulação: %w", err)
	}
	s.coasterService = coasterService
	s.wsHub.SetStateProvider(coasterService)

	if s.config.PLC.Enabled {
		s.plcService = plc.NewPLCService(s.config.PLC)
		s.coasterService.RegisterFrameHandler(s.plcService.UpdateFrame)
	}

	s.discoveryService = discovery.NewDiscoveryService(s.config.Discovery, s.config.Server.Port, Version)
	return nil
}

// Start inicia os serviços e bloqueia servindo HTTP
func (s *Server) Start() error {
	if err := s.discoveryService.Start(); err != nil {
		logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
	}

	if err := s.coasterService.Start(); err != nil {
		return fmt.Errorf("erro ao iniciar simulação: %w", err)
	}

	if s.plcService != nil {
		if err := s.plcService.Start(); err != nil {
			logger.Errorf("Erro ao iniciar serviço PLC: %v", err)
		}
	}

	s.logServerInfo()

	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}
	return nil
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Info("Iniciando shutdown do servidor")

		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("erro ao encerrar servidor HTTP: %w", err)
			logger.Error("Erro ao encerrar servidor HTTP", err)
		}

		s.discoveryService.Stop()
		s.coasterService.Stop()
		if s.plcService != nil {
			s.plcService.Shutdown()
		}
		s.wsHub.Shutdown()
		s.redisService.Shutdown()

		logger.Info("Shutdown completo")
	})
	return shutdownErr
}

// Handler retorna o roteador HTTP completo
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// localIP retorna o primeiro IPv4 fora do loopback ou "localhost"
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return "localhost"
}

func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("          Coaster Telemetry Server             ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Iniciado em: %s", utils.FormatDateTime(s.serverInfo.StartTime))
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	if s.config.Discovery.Enabled {
		logger.Infof("mDNS: %s.%s%s", s.discoveryService.GetInstanceName(),
			s.config.Discovery.Service, s.config.Discovery.Domain)
	}
	logger.Info("===============================================")
}
