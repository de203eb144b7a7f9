package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"duendefinder/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Server runs an http.Server around the API router.
type Server struct {
	bind     string
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer prepares a server for bind. It does not listen until Start.
func NewServer(bind string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens on the bind address and serves until ctx is cancelled or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	s.shutdown()
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}
