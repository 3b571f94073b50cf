// Package api exposes the analysis engine over HTTP/JSON.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/glycostack/glyco-engine/internal/services"
)

// Server hosts the JSON API. Construct with NewServer, then Start and
// Shutdown around the process lifecycle.
type Server struct {
	logger   *slog.Logger
	httpSrv  *http.Server
	listener net.Listener
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(addr string, service *services.AnalysisService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{service: service, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/analyze", h.analyze).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/response", h.response).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/trend", h.trend).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/results", h.results).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/remote/entries", h.remoteEntries).Methods(http.MethodGet)

	return &Server{
		logger: logger,
		httpSrv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves until Shutdown. It blocks; run it in
// a goroutine and watch the returned error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("http server listening", slog.String("address", ln.Addr().String()))
	if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Address returns the bound listen address, useful when Addr was ":0".
func (s *Server) Address() string {
	if s.listener == nil {
		return s.httpSrv.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
