package server

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"coaster_go/internal/api"
	"coaster_go/internal/models"
	"coaster_go/internal/websocket"
	"coaster_go/pkg/logger"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	wsHandler := websocket.NewHandler(s.wsHub)
	apiRouter := api.NewRouter(s.coasterService, s.redisService, "/api")
	apiRouter.Setup()

	// O WebSocket precisa do ResponseWriter original para o Hijack
	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	s.router.Handle("/api/", apiRouter)

	s.router.Handle("/health", s.wrap(s.healthHandler))
	s.router.Handle("/info", s.wrap(s.infoHandler))
}

func (s *Server) wrap(fn http.HandlerFunc) http.Handler {
	return api.Chain(api.RecoveryMiddleware, api.CorsMiddleware)(fn)
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	coasterStatus := s.coasterService.GetStatus().Status

	plcStatus := "disabled"
	if s.config.PLC.Enabled {
		plcStatus = "offline"
		if s.plcService != nil && s.plcService.IsRunning() {
			plcStatus = "ok"
		}
	}

	redisStatus := "disabled"
	if s.config.Redis.Enabled {
		redisStatus = "offline"
		if s.redisService.IsConnected() {
			redisStatus = "ok"
		}
	}

	discoveryStatus := "disabled"
	if s.config.Discovery.Enabled {
		discoveryStatus = "offline"
		if s.discoveryService.IsRunning() {
			discoveryStatus = "ok"
		}
	}

	status := "ok"
	code := http.StatusOK
	switch {
	case coasterStatus == models.StatusFailed:
		status = "failed"
		code = http.StatusServiceUnavailable
	case coasterStatus != models.StatusRunning || redisStatus == "offline":
		status = "degraded"
	}

	s.respondWithJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"services": map[string]string{
			"coaster":   coasterStatus,
			"redis":     redisStatus,
			"plc":       plcStatus,
			"websocket": "ok",
			"discovery": discoveryStatus,
		},
	})
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "Coaster Telemetry",
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      time.Since(info.StartTime).Round(time.Second).String(),
		"connections": info.Connections,
		"source":      s.sourceOrigin(),
		"frameRate":   s.config.Simulation.FrameRate,
	})
}

func (s *Server) sourceOrigin() string {
	if s.config.Source.File != "" {
		return s.config.Source.File
	}
	return s.config.Source.URL
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
	}
}
