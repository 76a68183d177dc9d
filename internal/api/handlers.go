package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"coaster_go/internal/coaster"
	"coaster_go/internal/curve"
	"coaster_go/internal/models"
	"coaster_go/pkg/logger"
)

// CoasterState é o que a API lê do serviço de simulação
type CoasterState interface {
	GetStatus() models.CoasterStatus
	GetLastFrame() *models.TelemetryFrame
	TrackSample(segments int) ([]models.TrackPoint, error)
	ControlPoints() ([]models.ControlPoint, error)
	Dataset() (*models.Dataset, error)
	Stats() coaster.Stats
}

// History é o histórico persistido no Redis
type History interface {
	IsConnected() bool
	GetStatus() (*models.CoasterStatus, error)
	GetLatestFrame() (*models.TelemetryFrame, error)
	GetLaps(limit int64) ([]models.LapRecord, error)
	GetLapCount() (int64, error)
}

// Handler contém os handlers HTTP para a API
type Handler struct {
	coaster CoasterState
	history History
}

// NewHandler cria um novo handler de API. history pode ser nil.
func NewHandler(coasterState CoasterState, history History) *Handler {
	return &Handler{
		coaster: coasterState,
		history: history,
	}
}

func (h *Handler) historyAvailable() bool {
	return h.history != nil && h.history.IsConnected()
}

// GetStatus retorna o status da simulação
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	status := h.coaster.GetStatus()

	// Antes do primeiro carregamento vale o último status persistido
	if status.Status == models.StatusInitializing && h.historyAvailable() {
		if stored, err := h.history.GetStatus(); err == nil && stored != nil {
			status = *stored
		}
	}

	response := map[string]interface{}{
		"status":    status.Status,
		"timestamp": status.Timestamp.UnixMilli(),
	}
	if status.LastError != "" {
		response["lastError"] = status.LastError
	}
	if status.ErrorCount > 0 {
		response["errorCount"] = status.ErrorCount
	}
	if status.Fingerprint != "" {
		response["fingerprint"] = status.Fingerprint
		response["samples"] = status.Samples
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// GetCurrentFrame retorna o último quadro de telemetria
func (h *Handler) GetCurrentFrame(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	frame := h.coaster.GetLastFrame()
	if frame == nil && h.historyAvailable() {
		if stored, err := h.history.GetLatestFrame(); err == nil {
			frame = stored
		}
	}

	if frame == nil {
		h.respondWithError(w, http.StatusNotFound, "Nenhum dado disponível")
		return
	}
	h.respondWithJSON(w, http.StatusOK, frame)
}

// GetTrack retorna a trilha amostrada em ?segments=N intervalos
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	segments := curve.RailSegments
	if raw := r.URL.Query().Get("segments"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > curve.MaxSampleSegments {
			h.respondWithError(w, http.StatusBadRequest,
				fmt.Sprintf("segments deve ser um inteiro entre 1 e %d", curve.MaxSampleSegments))
			return
		}
		segments = n
	}

	points, err := h.coaster.TrackSample(segments)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"segments": segments,
		"points":   points,
	})
}

// datasetResponse descreve o dataset carregado e seus pontos de controle
type datasetResponse struct {
	Fingerprint   string                `json:"fingerprint"`
	Origin        string                `json:"origin"`
	Samples       int                   `json:"samples"`
	FetchedAt     time.Time             `json:"fetchedAt"`
	ControlPoints []models.ControlPoint `json:"controlPoints"`
}

// GetDataset retorna os pontos de controle com ETag para cache do cliente
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	dataset, err := h.coaster.Dataset()
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	points, err := h.coaster.ControlPoints()
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	body, err := json.Marshal(datasetResponse{
		Fingerprint:   dataset.Fingerprint,
		Origin:        dataset.Origin,
		Samples:       dataset.Len(),
		FetchedAt:     dataset.FetchedAt,
		ControlPoints: points,
	})
	if err != nil {
		logger.Errorf("Erro ao codificar dataset: %v", err)
		h.respondWithError(w, http.StatusInternalServerError, "Erro interno ao processar resposta")
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Debugf("Cliente desconectou durante resposta: %v", err)
	}
}

// GetLaps retorna o histórico de voltas (?limit=N)
func (h *Handler) GetLaps(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "limit deve ser um inteiro positivo")
			return
		}
		limit = n
	}

	laps := []models.LapRecord{}
	count := h.coaster.Stats().Laps

	if h.historyAvailable() {
		if stored, err := h.history.GetLaps(limit); err == nil {
			laps = stored
		} else {
			logger.Errorf("Erro ao obter voltas do Redis: %v", err)
		}
		if total, err := h.history.GetLapCount(); err == nil {
			count = total
		}
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count": count,
		"laps":  laps,
	})
}

// GetStats retorna as estatísticas do loop de simulação
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	stats := h.coaster.Stats()
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"runId":           stats.RunID,
		"startedAt":       stats.StartedAt,
		"totalTicks":      stats.TotalTicks,
		"laps":            stats.Laps,
		"avgTickDuration": stats.AvgTickDuration.String(),
		"framesSkipped":   stats.FramesSkipped,
	})
}

func (h *Handler) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return false
	}
	return true
}

// respondWithServiceError traduz erros do serviço em códigos HTTP
func (h *Handler) respondWithServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, coaster.ErrNotReady) {
		h.respondWithError(w, http.StatusServiceUnavailable, "Trilha ainda não carregada")
		return
	}
	logger.Errorf("Erro na API: %v", err)
	h.respondWithError(w, http.StatusInternalServerError, err.Error())
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
		fmt.Fprint(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}
