// Package discovery anuncia o servidor da montanha-russa via mDNS para que
// painéis na rede local encontrem o endpoint WebSocket sem configuração.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/grandcat/zeroconf"

	"coaster_go/internal/config"
	"coaster_go/pkg/logger"
)

const (
	// DisplayName aparece no registro TXT "name"
	DisplayName = "Coaster Telemetry"

	// WebSocketPath é anunciado no registro TXT "path"
	WebSocketPath = "/ws"
)

// ErrNoAddress indica que nenhuma interface IPv4 fora do loopback foi encontrada
var ErrNoAddress = errors.New("não foi possível determinar o endereço IP local")

// DiscoveryService gerencia o anúncio do serviço na rede local
type DiscoveryService struct {
	server       *zeroconf.Server
	config       config.DiscoveryConfig
	mutex        sync.Mutex
	instanceName string
	version      string
	port         int
	running      bool
	serverIP     string
}

// NewDiscoveryService cria um novo serviço de descoberta
func NewDiscoveryService(cfg config.DiscoveryConfig, port int, version string) *DiscoveryService {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "coaster"
	}

	return &DiscoveryService{
		config:       cfg,
		port:         port,
		version:      version,
		instanceName: fmt.Sprintf("%s-coaster", hostname),
	}
}

// Start registra o serviço. Com discovery desabilitado não faz nada.
func (s *DiscoveryService) Start() error {
	if !s.config.Enabled {
		logger.Info("Descoberta mDNS desabilitada por configuração")
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	ip, err := localIP()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	s.serverIP = ip

	server, err := zeroconf.Register(
		s.instanceName,
		s.config.Service,
		s.config.Domain,
		s.port,
		s.txtRecords(),
		nil,
	)
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true

	logger.Infof("Serviço de descoberta iniciado em %s:%d (mDNS: %s.%s%s)",
		ip, s.port, s.instanceName, s.config.Service, s.config.Domain)
	return nil
}

// Stop remove o anúncio
func (s *DiscoveryService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false
	logger.Info("Serviço de descoberta parado")
}

func (s *DiscoveryService) txtRecords() []string {
	return []string{
		"version=" + s.version,
		"ip=" + s.serverIP,
		"name=" + DisplayName,
		"path=" + WebSocketPath,
	}
}

// GetServerIP retorna o IP anunciado
func (s *DiscoveryService) GetServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

// GetInstanceName retorna o nome da instância do serviço
func (s *DiscoveryService) GetInstanceName() string {
	return s.instanceName
}

// IsRunning verifica se o serviço está em execução
func (s *DiscoveryService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// localIP retorna o primeiro IPv4 fora do loopback
func localIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
	}
	return "", ErrNoAddress
}
