package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/renovate-resolver/resolver/pkg/logger"
)

const httpIdleTimeout = 60 * time.Second

// Run sets the server up, listens until SIGINT/SIGTERM or context cancellation,
// then shuts down gracefully.
func (s *Server) Run() error {
	if err := s.Setup(); err != nil {
		return err
	}
	defer s.cleanup()
	listener, err := net.Listen("tcp", s.config.Server.FullAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.FullAddress(), err)
	}
	return s.serve(listener)
}

func (s *Server) serve(listener net.Listener) error {
	srv := s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logStartupBanner()
	return s.handleGracefulShutdown(srv, errCh)
}

func (s *Server) createHTTPServer() *http.Server {
	cfg := s.config.Server
	logger.FromContext(s.ctx).Info("Starting HTTP server",
		"address", fmt.Sprintf("http://%s", cfg.FullAddress()),
	)
	s.httpServer = &http.Server{
		Addr:              cfg.FullAddress(),
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       httpIdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}
	return s.httpServer
}

func (s *Server) handleGracefulShutdown(srv *http.Server, errCh <-chan error) error {
	log := logger.FromContext(s.ctx)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
		log.Debug("Received shutdown signal, initiating graceful shutdown")
	case <-s.ctx.Done():
		log.Debug("Server context cancelled, initiating graceful shutdown")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("Server failed", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.cancel()
	log.Info("Server shutdown completed successfully")
	return nil
}
