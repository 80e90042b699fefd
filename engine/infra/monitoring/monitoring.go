package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/renovate-resolver/resolver/engine/infra/monitoring/middleware"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "renovate-resolver"

// Service encapsulates all monitoring and observability logic
type Service struct {
	meter             metric.Meter
	exporter          *prometheus.Exporter
	provider          *sdkmetric.MeterProvider
	registry          *prom.Registry
	config            *Config
	resolver          *ResolverMetrics
	systemReg         metric.Registration
	initialized       bool
	initializationErr error
}

// newDisabledService creates a service instance with no-op implementations
func newDisabledService(cfg *Config, initErr error) *Service {
	return &Service{
		config:            cfg,
		meter:             noop.NewMeterProvider().Meter(meterName),
		initialized:       false,
		initializationErr: initErr,
	}
}

// NewService creates a monitoring service backed by a dedicated Prometheus registry.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg, nil), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	return newService(ctx, cfg, meter, provider, registry, exporter)
}

// NewServiceWithReader builds an initialized service on top of a custom reader.
// Tests use it with sdkmetric.NewManualReader to collect in-process.
func NewServiceWithReader(ctx context.Context, reader sdkmetric.Reader) (*Service, error) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return newService(ctx, DefaultConfig(), provider.Meter(meterName), provider, nil, nil)
}

func newService(
	ctx context.Context,
	cfg *Config,
	meter metric.Meter,
	provider *sdkmetric.MeterProvider,
	registry *prom.Registry,
	exporter *prometheus.Exporter,
) (*Service, error) {
	resolverMetrics, err := NewResolverMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver instruments: %w", err)
	}
	systemReg, err := registerSystemMetrics(ctx, meter)
	if err != nil {
		return nil, fmt.Errorf("failed to register system metrics: %w", err)
	}
	logger.FromContext(ctx).Info("Monitoring service initialized", "path", cfg.Path)
	return &Service{
		meter:       meter,
		exporter:    exporter,
		provider:    provider,
		registry:    registry,
		config:      cfg,
		resolver:    resolverMetrics,
		systemReg:   systemReg,
		initialized: true,
	}, nil
}

// Meter returns the OpenTelemetry meter for custom instrumentation
func (s *Service) Meter() metric.Meter {
	return s.meter
}

// Resolver returns the domain instruments. It is nil when monitoring is disabled,
// which callers can still use since every method is nil-safe.
func (s *Service) Resolver() *ResolverMetrics {
	return s.resolver
}

// Path is where the exporter is mounted.
func (s *Service) Path() string {
	return s.config.Path
}

// GinMiddleware returns Gin middleware for HTTP metrics.
func (s *Service) GinMiddleware() gin.HandlerFunc {
	if !s.initialized {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return middleware.HTTPMetrics(s.meter)
}

// ExporterHandler returns an HTTP handler for the metrics endpoint
func (s *Service) ExporterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.initialized || s.registry == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("Monitoring service not initialized")); err != nil {
				logger.FromContext(r.Context()).Error("Failed to write response", "error", err)
			}
			return
		}
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the monitoring service
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if s.systemReg != nil {
		errs = append(errs, s.systemReg.Unregister())
	}
	if s.provider != nil {
		errs = append(errs, s.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// IsInitialized returns whether the monitoring service was successfully initialized
func (s *Service) IsInitialized() bool {
	return s.initialized
}

// InitializationError returns any error that occurred during initialization
func (s *Service) InitializationError() error {
	return s.initializationErr
}

// NewServiceWithFallback creates a monitoring service with graceful degradation.
// If initialization fails the error is logged and a no-op service is returned.
func NewServiceWithFallback(ctx context.Context, cfg *Config) *Service {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	service, err := NewService(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize monitoring, using no-op implementation", "error", err)
		return newDisabledService(cfg, err)
	}
	return service
}
