// Package http
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"netsampler/internal/logger"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	addr    string
	handler http.Handler
	log     logger.Logger
	srv     *http.Server
	ready   chan net.Addr
}

func NewServer(addr string, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		log:     log,
		ready:   make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener is open.
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	// websocket streams are long lived, so there is no write timeout
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.ready <- ln.Addr()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
