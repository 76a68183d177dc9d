package api

import (
	"net/http"
	"strings"

	"coaster_go/pkg/logger"
)

// Router gerencia as rotas da API
type Router struct {
	handler     *Handler
	mux         *http.ServeMux
	basePath    string
	middlewares []Middleware
	chained     http.Handler
}

// NewRouter cria um novo router para a API
func NewRouter(coasterState CoasterState, history History, basePath string) *Router {
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	return &Router{
		handler:  NewHandler(coasterState, history),
		mux:      http.NewServeMux(),
		basePath: basePath,
		middlewares: []Middleware{
			RecoveryMiddleware,
			LoggingMiddleware,
			CorsMiddleware,
		},
	}
}

// Setup configura todas as rotas
func (r *Router) Setup() {
	r.mux.HandleFunc(r.path("/status"), r.handler.GetStatus)
	r.mux.HandleFunc(r.path("/current"), r.handler.GetCurrentFrame)
	r.mux.HandleFunc(r.path("/track"), r.handler.GetTrack)
	r.mux.HandleFunc(r.path("/dataset"), r.handler.GetDataset)
	r.mux.HandleFunc(r.path("/laps"), r.handler.GetLaps)
	r.mux.HandleFunc(r.path("/stats"), r.handler.GetStats)

	r.chained = Chain(r.middlewares...)(r.mux)
	logger.Infof("API configurada com base path: %s", r.basePath)
}

// Handler retorna o handler HTTP final com todos os middlewares aplicados
func (r *Router) Handler() http.Handler {
	if r.chained == nil {
		r.Setup()
	}
	return r.chained
}

// AddMiddleware adiciona um novo middleware. Deve ser chamado antes de Setup.
func (r *Router) AddMiddleware(middleware Middleware) {
	r.middlewares = append(r.middlewares, middleware)
}

// path retorna o caminho completo para uma rota
func (r *Router) path(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return r.basePath + route
}

// ServeHTTP implementa a interface http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Handler().ServeHTTP(w, req)
}
