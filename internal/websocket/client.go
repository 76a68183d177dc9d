package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"coaster_go/internal/models"
	"coaster_go/pkg/logger"
)

const (
	// Tempo permitido para escrever uma mensagem para o peer.
	writeWait = 10 * time.Second

	// Tempo permitido para ler a próxima mensagem do peer.
	pongWait = 60 * time.Second

	// Envia pings ao peer com esse intervalo. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Tamanho máximo da mensagem permitido.
	maxMessageSize = 64 * 1024

	// Tamanho do buffer de canal para mensagens de saída.
	sendBufferSize = 256
)

// Client representa uma conexão WebSocket individual
type Client struct {
	hub *Hub

	// Conexão WebSocket.
	conn *websocket.Conn

	// Buffer de mensagens para envio.
	send chan []byte

	// ID único do cliente
	id string

	// Informações do cliente (IP, agente, etc.)
	userAgent string
	ipAddress string

	// Timestamp da conexão
	connectedAt time.Time

	// Última área de exibição informada pelo cliente
	viewport models.Viewport

	mu     sync.Mutex
	closed bool
}

// newClient cria um novo cliente WebSocket
func newClient(hub *Hub, conn *websocket.Conn, userAgent, ipAddress string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          uuid.New().String(),
		userAgent:   userAgent,
		ipAddress:   ipAddress,
		connectedAt: time.Now(),
	}
}

// ID retorna o identificador do cliente
func (c *Client) ID() string { return c.id }

// trySend enfileira sem bloquear; retorna false se o buffer estiver cheio
// ou o cliente já tiver sido fechado
func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// close fecha o canal de envio uma única vez
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// setViewport guarda o tamanho da tela do cliente
func (c *Client) setViewport(v models.Viewport) {
	c.mu.Lock()
	c.viewport = v
	c.mu.Unlock()
}

// Viewport retorna o último tamanho informado pelo cliente
func (c *Client) Viewport() models.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

// readPump bombeia mensagens do WebSocket para o hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Errorf("Erro de leitura WebSocket: %v", err)
			}
			break
		}

		c.processIncomingMessage(message)
	}
}

// writePump bombeia mensagens do hub para a conexão WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// O hub fechou o canal.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processIncomingMessage processa uma mensagem recebida do cliente
func (c *Client) processIncomingMessage(message []byte) {
	cmd, err := ParseClientCommand(message)
	if err != nil {
		logger.Errorf("Erro ao decodificar mensagem do cliente %s: %v", c.id, err)
		c.sendErrorMessage("invalid_format", "Formato de mensagem inválido")
		return
	}

	switch cmd.Type {
	case CommandPing:
		c.handlePing(cmd)
	default:
		// Encaminhar comando para o hub processar
		select {
		case c.hub.commands <- models.ClientCommand{
			Command:  cmd.Type,
			Params:   cmd.Params,
			ClientID: c.id,
		}:
		default:
			logger.Warnf("Fila de comandos cheia, descartando %s do cliente %s", cmd.Type, c.id)
		}
	}
}

// handlePing responde com pong imediatamente
func (c *Client) handlePing(cmd models.CommandMessage) {
	pingTime, _ := paramFloat(cmd.Params, "time")

	if jsonMsg, err := SerializeMessage(CreatePongResponse(int64(pingTime))); err == nil {
		c.trySend(jsonMsg)
	}
}

// sendErrorMessage envia uma mensagem de erro para o cliente
func (c *Client) sendErrorMessage(code string, message string) {
	if jsonMsg, err := SerializeMessage(NewErrorMessage(message, code)); err == nil {
		c.trySend(jsonMsg)
	}
}
