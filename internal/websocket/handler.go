package websocket

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"coaster_go/pkg/logger"
)

// Upgrader do WebSocket; aceita qualquer origem
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler gerencia conexões WebSocket
type Handler struct {
	hub *Hub
}

// NewHandler cria um novo gerenciador de WebSocket
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
	}
}

// ServeHTTP implementa a interface http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("Erro ao fazer upgrade para WebSocket: %v", err)
		return
	}

	userAgent := r.UserAgent()
	ipAddress := getIPAddress(r)

	logger.Infof("Nova conexão WebSocket de %s (%s)", ipAddress, userAgent)

	client := newClient(h.hub, conn, userAgent, ipAddress)

	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// getIPAddress extrai o endereço IP do cliente
func getIPAddress(r *http.Request) string {
	// Tentar obter o IP real caso esteja atrás de proxy
	ipAddress := r.Header.Get("X-Real-IP")
	if ipAddress == "" {
		ipAddress = r.Header.Get("X-Forwarded-For")
	}
	if ipAddress == "" {
		ipAddress = r.RemoteAddr
	}
	return ipAddress
}

// GetHealthHandler retorna um handler com o estado do hub
func (h *Handler) GetHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		status := struct {
			Status    string    `json:"status"`
			Stats     HubStats  `json:"stats"`
			Timestamp time.Time `json:"timestamp"`
		}{
			Status:    "ok",
			Stats:     h.hub.Stats(),
			Timestamp: time.Now(),
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Errorf("Erro ao codificar saúde do WebSocket: %v", err)
		}
	}
}
