package websocket

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"coaster_go/internal/config"
	"coaster_go/internal/models"
	"coaster_go/pkg/logger"
)

// StateProvider fornece o estado atual da simulação para novos clientes e
// comandos get_status/get_frame
type StateProvider interface {
	GetStatus() models.CoasterStatus
	GetLastFrame() *models.TelemetryFrame
}

// HubStats resume a atividade do hub
type HubStats struct {
	Clients           int     `json:"clients"`
	TotalClients      int64   `json:"totalClients"`
	TotalMessages     int64   `json:"totalMessages"`
	MessagesPerSecond float64 `json:"messagesPerSecond"`
	DroppedFrames     int64   `json:"droppedFrames"`
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	// Canal para registrar clientes
	register chan *Client

	// Canal para desregistrar clientes
	unregister chan *Client

	// Canal para mensagens de broadcast
	broadcast chan []byte

	// Comando recebido dos clientes
	commands chan models.ClientCommand

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	// Limita quadros por segundo; voltas e status não são limitados
	frameLimiter *rate.Limiter

	camera config.CameraConfig

	provider     StateProvider
	providerLock sync.RWMutex

	// Estatísticas
	stats struct {
		totalMessages      int64
		totalClients       int64
		droppedFrames      int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	// Sinal para encerramento do hub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub cria uma nova instância do Hub
func NewHub(wsCfg config.WebSocketConfig, camera config.CameraConfig) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	limit := rate.Inf
	if wsCfg.BroadcastRate > 0 {
		limit = rate.Limit(wsCfg.BroadcastRate)
	}
	burst := wsCfg.Burst
	if burst < 1 {
		burst = 1
	}

	h := &Hub{
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan []byte, 256),
		commands:     make(chan models.ClientCommand, 100),
		frameLimiter: rate.NewLimiter(limit, burst),
		camera:       camera,
		ctx:          ctx,
		cancel:       cancel,
	}

	h.stats.lastStatsReset = time.Now()

	return h
}

// SetStateProvider define quem responde get_status e get_frame
func (h *Hub) SetStateProvider(p StateProvider) {
	h.providerLock.Lock()
	h.provider = p
	h.providerLock.Unlock()
}

func (h *Hub) stateProvider() StateProvider {
	h.providerLock.RLock()
	defer h.providerLock.RUnlock()
	return h.provider
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	logger.Info("Iniciando WebSocket Hub")

	// Ticker para estatísticas periódicas
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()

				logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			h.mu.RLock()
			deadClients := make([]*Client, 0, 4)
			for client := range h.clients {
				if !client.trySend(message) {
					// Canal do cliente está cheio, marcar para desconexão
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range deadClients {
				h.removeClient(client)
			}

		case cmd := <-h.commands:
			h.handleClientCommand(cmd)

		case <-statsTicker.C:
			stats := h.Stats()
			h.statsLock.Lock()
			elapsed := time.Since(h.stats.lastStatsReset).Seconds()
			if elapsed > 0 {
				h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
			}
			h.stats.messagesSinceReset = 0
			h.stats.lastStatsReset = time.Now()
			mps := h.stats.messagesPerSecond
			h.statsLock.Unlock()

			logger.Infof("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens, %d quadros descartados",
				stats.Clients, mps, stats.TotalMessages, stats.DroppedFrames)
		}
	}
}

// removeClient desregistra um cliente lento dentro do loop do hub
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.close()
		logger.Warnf("Cliente WebSocket %s removido: buffer de envio cheio", client.id)
	}
}

// enqueue coloca uma mensagem na fila de broadcast sem bloquear o chamador
func (h *Hub) enqueue(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		logger.Throttledf("ws-broadcast-full", logger.WARN, "Fila de broadcast cheia, mensagem descartada")
		return false
	}
}

// BroadcastFrame envia o quadro de telemetria respeitando a taxa configurada.
// Quadros de fim de volta sempre passam.
func (h *Hub) BroadcastFrame(frame models.TelemetryFrame) bool {
	if h.ClientCount() == 0 {
		return false
	}

	if !frame.Wrapped && !h.frameLimiter.Allow() {
		h.statsLock.Lock()
		h.stats.droppedFrames++
		h.statsLock.Unlock()
		return false
	}

	jsonMessage, err := SerializeMessage(NewFrameMessage(frame))
	if err != nil {
		logger.Error("Erro ao serializar quadro de telemetria", err)
		return false
	}
	return h.enqueue(jsonMessage)
}

// BroadcastLap envia o registro de uma volta completa
func (h *Hub) BroadcastLap(lap models.LapRecord) {
	if jsonMessage, err := SerializeMessage(NewLapMessage(lap)); err == nil {
		h.enqueue(jsonMessage)
	} else {
		logger.Error("Erro ao serializar mensagem de volta", err)
	}
}

// BroadcastStatus envia atualização de status para todos os clientes
func (h *Hub) BroadcastStatus(status models.CoasterStatus) {
	if jsonMessage, err := SerializeMessage(NewStatusMessage(status)); err == nil {
		h.enqueue(jsonMessage)
	} else {
		logger.Error("Erro ao serializar mensagem de status", err)
	}
}

// CameraFor calcula a câmera para uma área de exibição
func (h *Hub) CameraFor(v models.Viewport) models.Camera {
	aspect := 1.0
	if v.Width > 0 && v.Height > 0 {
		aspect = float64(v.Width) / float64(v.Height)
	}
	return models.Camera{
		FOV:    h.camera.FOV,
		Aspect: aspect,
		Near:   h.camera.Near,
		Far:    h.camera.Far,
	}
}

// handleClientCommand processa comandos recebidos dos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Debugf("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)
	if client == nil {
		return
	}

	switch cmd.Command {
	case CommandGetStatus:
		h.sendCurrentStatus(client)
	case CommandGetFrame:
		h.sendLastFrame(client)
	case CommandResize:
		h.handleResize(client, cmd.Params)
	default:
		logger.Warnf("Comando desconhecido: %s", cmd.Command)
		client.sendErrorMessage("unknown_command", "Comando desconhecido: "+cmd.Command)
	}
}

// handleResize atualiza a câmera do cliente; não toca na simulação
func (h *Hub) handleResize(client *Client, params interface{}) {
	w, okW := paramFloat(params, "width")
	hh, okH := paramFloat(params, "height")
	if !okW || !okH || w <= 0 || hh <= 0 {
		client.sendErrorMessage("invalid_params", "resize exige width e height positivos")
		return
	}

	viewport := models.Viewport{Width: int(w), Height: int(hh)}
	client.setViewport(viewport)

	if jsonMsg, err := SerializeMessage(NewCameraMessage(viewport, h.CameraFor(viewport))); err == nil {
		client.trySend(jsonMsg)
	}
}

// sendCurrentStatus envia status atual para um cliente específico
func (h *Hub) sendCurrentStatus(client *Client) {
	p := h.stateProvider()
	if p == nil {
		return
	}
	if jsonMsg, err := SerializeMessage(NewStatusMessage(p.GetStatus())); err == nil {
		client.trySend(jsonMsg)
	}
}

// sendLastFrame envia o último quadro para um cliente específico
func (h *Hub) sendLastFrame(client *Client) {
	p := h.stateProvider()
	if p == nil {
		return
	}
	frame := p.GetLastFrame()
	if frame == nil {
		return
	}
	if jsonMsg, err := SerializeMessage(NewFrameMessage(*frame)); err == nil {
		client.trySend(jsonMsg)
	}
}

// sendInitialDataToClient envia boas-vindas, câmera padrão e status
func (h *Hub) sendInitialDataToClient(client *Client) {
	welcome := models.WebSocketMessage{
		Type:      TypeWelcome,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message":  "Conectado ao servidor da montanha-russa",
			"clientId": client.id,
			"camera":   h.CameraFor(models.Viewport{}),
		},
	}

	if jsonMsg, err := SerializeMessage(welcome); err == nil {
		client.trySend(jsonMsg)
	}

	h.sendCurrentStatus(client)
}

// Shutdown encerra graciosamente o hub
func (h *Hub) Shutdown() {
	h.cancel()
	// Aguardar um pequeno tempo para processamento finalizar
	time.Sleep(100 * time.Millisecond)
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats retorna uma cópia das estatísticas
func (h *Hub) Stats() HubStats {
	clients := h.ClientCount()

	h.statsLock.Lock()
	defer h.statsLock.Unlock()
	return HubStats{
		Clients:           clients,
		TotalClients:      h.stats.totalClients,
		TotalMessages:     h.stats.totalMessages,
		MessagesPerSecond: h.stats.messagesPerSecond,
		DroppedFrames:     h.stats.droppedFrames,
	}
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}
