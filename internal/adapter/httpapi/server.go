// Package httpapi exposes the river-risk operations over HTTP along with
// health, readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/river-watch/internal/observability"
	"github.com/couchcryptid/river-watch/internal/service"
)

const requestIDHeader = "X-Request-ID"

// Server wraps the HTTP listener around the service operations.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	svc        *service.Service
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates a Server with all API, health, and metrics routes
// registered.
func NewServer(addr string, svc *service.Service, metrics *observability.Metrics, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		router:  router,
		svc:     svc,
		metrics: metrics,
		logger:  logger,
	}

	router.HandleFunc("/rivers/nearby/{lat}/{lng}/{radius}", s.handleNearbyRivers).Methods(http.MethodGet)
	router.HandleFunc("/rivers/nearby/{lat}/{lng}", s.handleNearbyRivers).Methods(http.MethodGet)
	router.HandleFunc("/rivers/flood-stage/{siteId}", s.handleFloodStage).Methods(http.MethodGet)
	router.HandleFunc("/weather/current/{lat}/{lng}", s.handleCurrentWeather).Methods(http.MethodGet)

	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Use(requestIDMiddleware)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestIDMiddleware assigns a request ID when the client did not send
// one, and echoes it back on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.svc.CheckReadiness(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
