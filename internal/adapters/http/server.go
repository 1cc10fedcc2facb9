// Package http provides the HTTP inspection API for the map scene.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/atlas/internal/config"
	"github.com/jobrunner/atlas/internal/ports/input"
)

// Pointer feeds simulated pointer input into a headless engine.
type Pointer interface {
	Click(lon, lat float64, shift bool)
	Hover(lon, lat float64)
}

// Metrics instruments requests and serves the scrape endpoint.
type Metrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Options holds the optional collaborators of the server. Routes backed by a
// nil collaborator are not registered.
type Options struct {
	Reload      input.ReloadTrigger
	Pointer     Pointer
	Metrics     Metrics
	MetricsPath string
}

// Server wraps the HTTP server with application handlers.
type Server struct {
	server *http.Server
	router *mux.Router
	scene  input.MapService
	layers input.LayerManager
	health input.HealthChecker
	opts   Options
	cors   corsPolicy
	logger *slog.Logger
	config config.ServerConfig
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg config.ServerConfig,
	scene input.MapService,
	layers input.LayerManager,
	health input.HealthChecker,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		scene:  scene,
		layers: layers,
		health: health,
		opts:   opts,
		cors:   corsPolicy{allowed: cfg.CORS.AllowedOrigins},
		logger: logger,
		config: cfg,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Middleware)
	}
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/scene", s.handleScene).Methods(http.MethodGet)

	api.HandleFunc("/layers", s.handleListLayers).Methods(http.MethodGet)
	api.HandleFunc("/layers/order", s.handleReorderLayers).Methods(http.MethodPut)
	api.HandleFunc("/layers/{id}", s.handleUpdateLayer).Methods(http.MethodPatch)

	api.HandleFunc("/selection", s.handleSelect).Methods(http.MethodPut)
	api.HandleFunc("/selection", s.handleClearSelection).Methods(http.MethodDelete)
	api.HandleFunc("/clustering", s.handleClustering).Methods(http.MethodPut)

	api.HandleFunc("/events/hover", s.handleHoverEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/click", s.handleClickEvent).Methods(http.MethodPost)

	if s.opts.Pointer != nil {
		api.HandleFunc("/pointer/hover", s.handlePointerHover).Methods(http.MethodPost)
		api.HandleFunc("/pointer/click", s.handlePointerClick).Methods(http.MethodPost)
	}

	if s.opts.Reload != nil {
		api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	}

	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)

	if s.opts.Metrics != nil {
		r.Handle(s.opts.MetricsPath, s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
