// Package server owns the HTTP listener, including the sequential
// port negotiation that lets several gateways share a machine.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"relaypoint/gateway/pkg/config"
)

// PortError reports that no port in the negotiation window could be
// bound.
type PortError struct {
	Host     string
	First    int
	Attempts int
}

func (e *PortError) Error() string {
	return fmt.Sprintf("server: no free port on %s in range %d-%d", e.Host, e.First, e.First+e.Attempts-1)
}

// Server wraps an http.Server bound through port negotiation.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	port       int
}

// New creates a server for the given handler. The listener is not
// opened until Listen is called.
func New(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Listen binds the listener, negotiating the port. The requested port
// is tried first; an address-in-use fault advances to the next
// sequential port, up to PortAttempts total tries. Any other bind
// fault propagates immediately. Binding is attempted directly rather
// than probed first, so there is no window for another process to take
// a port between check and bind.
func (s *Server) Listen() error {
	for i := 0; i < s.cfg.PortAttempts; i++ {
		port := s.cfg.Port + i
		addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", port))

		ln, err := net.Listen("tcp", addr)
		if err == nil {
			s.listener = ln
			s.port = port
			if i > 0 {
				s.logger.Info("requested port taken, negotiated another",
					"requested", s.cfg.Port, "bound", port)
			}
			return nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("server: binding %s: %w", addr, err)
		}
		s.logger.Debug("port in use, trying next", "port", port)
	}

	return &PortError{Host: s.cfg.Host, First: s.cfg.Port, Attempts: s.cfg.PortAttempts}
}

// Port returns the bound port. Valid after Listen succeeds.
func (s *Server) Port() int {
	return s.port
}

// URL returns the server's base URL. Valid after Listen succeeds.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.port)))
}

// Serve blocks serving requests until Shutdown is called or the
// listener fails. Listen must have succeeded first.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}
	s.logger.Info("listening", "addr", s.listener.Addr().String())
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, bounded by ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
