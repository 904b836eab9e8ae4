package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mediavault/internal/config"
	"mediavault/internal/library"
	"mediavault/internal/logging"
	"mediavault/internal/services"
)

// Server exposes a library Manager over HTTP.
type Server struct {
	bind    string
	logger  *slog.Logger
	manager *library.Manager

	listener net.Listener
	server   *http.Server
}

// NewServer builds an HTTP server for manager bound to cfg.API.Bind.
func NewServer(cfg *config.Config, manager *library.Manager, logger *slog.Logger) (*Server, error) {
	if manager == nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "init", "library manager is required", nil)
	}
	bind := ""
	if cfg != nil {
		bind = strings.TrimSpace(cfg.API.Bind)
	}
	if bind == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "init", "api.bind is not set", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:    bind,
		logger:  logging.NewComponentLogger(logger, "api"),
		manager: manager,
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler returns the chi router serving every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetItem)
				r.Delete("/", s.handleDeleteItem)
				r.Post("/download", s.handleDownload)
				r.Post("/prepare", s.handlePrepare)
				r.Post("/size", s.handleProbeSize)
			})
		})
		r.Route("/temp/{kind}", func(r chi.Router) {
			r.Get("/", s.handleServeTemp)
			r.Delete("/", s.handleReleaseTemp)
		})
	})
	return r
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Serve blocks serving requests on the listener opened by Start.
func (s *Server) Serve() error {
	if s.listener == nil {
		return services.Wrap(services.ErrConfiguration, "api", "serve", "server not started", nil)
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	s.writeJSON(w, httpStatus(err), ErrorResponse{Error: err.Error(), Kind: services.Kind(err)})
}
