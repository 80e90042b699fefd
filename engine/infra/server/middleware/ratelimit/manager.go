package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/infra/server/router"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/otel/metric"
)

// Manager limits requests per client IP with an in-process store.
type Manager struct {
	config  *Config
	limiter *limiter.Limiter
	metrics *blockMetrics
}

// NewManager validates cfg and builds the limiter. meter may be nil.
func NewManager(cfg *Config, meter metric.Meter) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          cfg.Prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	m, err := newBlockMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit metrics: %w", err)
	}
	return &Manager{
		config:  cfg,
		limiter: limiter.New(store, cfg.Rate.ToLimiterRate()),
		metrics: m,
	}, nil
}

// Middleware returns the gin handler enforcing the limit.
func (m *Manager) Middleware() gin.HandlerFunc {
	return mgin.NewMiddleware(m.limiter,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			route := c.FullPath()
			m.metrics.incrementBlocked(c.Request.Context(), route)
			logger.FromContext(c.Request.Context()).Warn("Rate limit exceeded",
				"client_ip", c.ClientIP(),
				"route", route,
			)
			router.RespondWithError(c, http.StatusTooManyRequests, router.MsgTooManyCalls)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// store failures let the request through
			logger.FromContext(c.Request.Context()).Error("Rate limiter store failed", "error", err)
			c.Next()
		}),
	)
}

// Rate reports the configured limit.
func (m *Manager) Rate() limiter.Rate {
	return m.config.Rate.ToLimiterRate()
}
