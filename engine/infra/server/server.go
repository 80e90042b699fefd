package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/infra/monitoring"
	"github.com/renovate-resolver/resolver/engine/infra/server/appstate"
	"github.com/renovate-resolver/resolver/engine/preset"
	"github.com/renovate-resolver/resolver/engine/schema"
	"github.com/renovate-resolver/resolver/pkg/config"
)

const (
	statusOK                  = "ok"
	statusNotReady            = "not_ready"
	statusReady               = "ready"
	monitoringShutdownTimeout = 5 * time.Second
	hostAny                   = "0.0.0.0"
	hostLoopback              = "127.0.0.1"
)

type Option func(*Server)

// WithSchemaSource replaces the schema source derived from configuration.
func WithSchemaSource(src schema.Source) Option {
	return func(s *Server) {
		s.schemaSource = src
	}
}

// WithResolver replaces the preset engine derived from configuration.
func WithResolver(r preset.Resolver) Option {
	return func(s *Server) {
		s.resolver = r
	}
}

// WithMonitoring supplies a pre-built monitoring service.
func WithMonitoring(m *monitoring.Service) Option {
	return func(s *Server) {
		s.monitoring = m
	}
}

type Server struct {
	config       *config.Config
	ctx          context.Context
	cancel       context.CancelFunc
	router       *gin.Engine
	state        *appstate.State
	monitoring   *monitoring.Service
	schemaSource schema.Source
	resolver     preset.Resolver
	httpServer   *http.Server
	cleanupMu    sync.Mutex
	cleanups     []func()
	shutdownOnce sync.Once
}

// NewServer creates a server using the configuration attached to ctx.
func NewServer(ctx context.Context, opts ...Option) (*Server, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration missing from context; attach one with config.ContextWithConfig")
	}
	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		config: cfg,
		ctx:    serverCtx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Setup builds every dependency and the router without listening.
// With eager compilation a schema that cannot be fetched or compiled fails Setup.
func (s *Server) Setup() error {
	state, err := s.setupDependencies()
	if err != nil {
		s.cleanup()
		return err
	}
	s.state = state
	if err := s.buildRouter(state); err != nil {
		s.cleanup()
		return fmt.Errorf("failed to build router: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler built by Setup.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) addCleanup(fn func()) {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// cleanup runs registered cleanups in reverse order, once.
func (s *Server) cleanup() {
	s.shutdownOnce.Do(func() {
		s.cleanupMu.Lock()
		fns := s.cleanups
		s.cleanups = nil
		s.cleanupMu.Unlock()
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	})
}

// Shutdown releases resources held by a server that was set up but never run.
func (s *Server) Shutdown() {
	s.cancel()
	s.cleanup()
}
