package plc

import (
	"fmt"
	"sync"
	"time"

	"github.com/robinson/gos7"

	"coaster_go/internal/config"
	"coaster_go/pkg/logger"
)

// S7Client encapsula a sessão ISO-on-TCP com o painel S7
type S7Client struct {
	client       gos7.Client
	handler      *gos7.TCPClientHandler
	config       config.PLCConfig
	connected    bool
	lastError    error
	connectMutex sync.Mutex
}

// NewS7Client cria um novo cliente para PLC S7
func NewS7Client(cfg config.PLCConfig) *S7Client {
	return &S7Client{config: cfg}
}

// Connect estabelece conexão com o PLC
func (c *S7Client) Connect() error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()
	return c.connectLocked()
}

func (c *S7Client) connectLocked() error {
	if c.connected {
		return nil
	}
	if c.handler != nil {
		c.handler.Close()
	}

	handler := gos7.NewTCPClientHandler(c.config.Host, c.config.Rack, c.config.Slot)
	handler.Timeout = c.config.WriteTimeout
	handler.IdleTimeout = 70 * time.Second

	if err := handler.Connect(); err != nil {
		c.lastError = fmt.Errorf("erro ao conectar ao PLC %s: %w", c.config.Host, err)
		return c.lastError
	}

	c.handler = handler
	c.client = gos7.NewClient(handler)
	c.connected = true
	logger.Infof("Conectado ao PLC em %s (Rack: %d, Slot: %d)", c.config.Host, c.config.Rack, c.config.Slot)
	return nil
}

// Disconnect fecha a conexão com o PLC
func (c *S7Client) Disconnect() {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if c.handler == nil {
		return
	}
	c.handler.Close()
	c.handler = nil
	c.client = nil
	c.connected = false
	logger.Info("Desconectado do PLC")
}

// IsConnected verifica se o cliente está conectado
func (c *S7Client) IsConnected() bool {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()
	return c.connected
}

// CheckConnection lê um byte do DB configurado para validar a sessão
func (c *S7Client) CheckConnection() error {
	_, err := c.ReadDataBlock(c.config.DBNumber, 0, 1)
	return err
}

// ReadDataBlock lê size bytes do DB a partir de startOffset
func (c *S7Client) ReadDataBlock(dbNumber, startOffset, size int) ([]byte, error) {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}

	buffer := make([]byte, size)
	if err := c.client.AGReadDB(dbNumber, startOffset, size, buffer); err != nil {
		c.connected = false
		c.lastError = fmt.Errorf("erro ao ler DB%d: %w", dbNumber, err)
		return nil, c.lastError
	}
	return buffer, nil
}

// WriteDataBlock escreve data no DB a partir de startOffset
func (c *S7Client) WriteDataBlock(dbNumber, startOffset int, data []byte) error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if err := c.connectLocked(); err != nil {
		return err
	}

	if err := c.client.AGWriteDB(dbNumber, startOffset, len(data), data); err != nil {
		c.connected = false
		c.lastError = fmt.Errorf("erro ao escrever DB%d: %w", dbNumber, err)
		return c.lastError
	}
	return nil
}

// GetLastError retorna o último erro ocorrido
func (c *S7Client) GetLastError() error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()
	return c.lastError
}
