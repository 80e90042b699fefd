package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/renovate-resolver/resolver/engine/infra/server/appstate"
	"github.com/renovate-resolver/resolver/engine/infra/server/middleware/ratelimit"
	"github.com/renovate-resolver/resolver/engine/infra/server/router"
	"github.com/renovate-resolver/resolver/pkg/config"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/renovate-resolver/resolver/pkg/version"
)

func convertRateLimitConfig(cfg *config.RateLimitConfig) *ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.Rate = ratelimit.RateConfig{
		Limit:  cfg.Limit,
		Period: cfg.Period,
	}
	return rl
}

// buildRateLimiter returns nil when limiting is disabled or cannot be initialized.
func (s *Server) buildRateLimiter() gin.HandlerFunc {
	if s.config.RateLimit.Limit <= 0 {
		return nil
	}
	log := logger.FromContext(s.ctx)
	manager, err := ratelimit.NewManager(convertRateLimitConfig(&s.config.RateLimit), s.monitoring.Meter())
	if err != nil {
		log.Error("Failed to initialize rate limiting", "error", err)
		return nil
	}
	rate := manager.Rate()
	log.Info("Rate limiter initialized", "driver", "memory", "limit", rate.Limit, "period", rate.Period)
	return manager.Middleware()
}

func (s *Server) buildRouter(state *appstate.State) error {
	r := gin.New()
	r.Use(gin.CustomRecovery(router.Recovery))
	r.Use(RequestIDMiddleware(logger.FromContext(s.ctx)))
	if s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware())
	}
	r.Use(LoggerMiddleware())
	r.Use(appstate.StateMiddleware(state))
	r.Use(router.ErrorHandler())
	r.NoRoute(router.NotFound)
	if s.monitoring.IsInitialized() {
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	if err := RegisterRoutes(s.ctx, r, state, s.buildRateLimiter()); err != nil {
		return err
	}
	s.router = r
	return nil
}

func (s *Server) logStartupBanner() {
	log := logger.FromContext(s.ctx)
	httpURL := fmt.Sprintf("http://%s:%d", friendlyHost(s.config.Server.Host), s.config.Server.Port)
	lines := []string{
		fmt.Sprintf("Renovate Resolver %s", version.Get()),
		fmt.Sprintf("  Resolve       > %s/resolve", httpURL),
		fmt.Sprintf("  Health        > %s/health", httpURL),
		fmt.Sprintf("  Readyz        > %s/readyz", httpURL),
		fmt.Sprintf("  Swagger UI    > %s/api-docs", httpURL),
		fmt.Sprintf("  OpenAPI JSON  > %s/api-docs.json", httpURL),
	}
	if s.monitoring.IsInitialized() {
		lines = append(lines, fmt.Sprintf("  Metrics       > %s%s", httpURL, s.monitoring.Path()))
	}
	if !s.config.Runtime.LogJSON && isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stdout, figure.NewFigure("renovate", "small", true).String())
	}
	log.Info("\n" + strings.Join(lines, "\n"))
}

func friendlyHost(h string) string {
	if h == hostAny || h == "::" || h == "" {
		return hostLoopback
	}
	return h
}
