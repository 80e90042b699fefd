package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/infra/server/appstate"
	"github.com/renovate-resolver/resolver/engine/infra/server/middleware/size"
	"github.com/renovate-resolver/resolver/engine/infra/server/router"
	"github.com/renovate-resolver/resolver/pkg/logger"
)

// RegisterRoutes mounts the public API. limiter may be nil.
func RegisterRoutes(ctx context.Context, r *gin.Engine, state *appstate.State, limiter gin.HandlerFunc) error {
	if state == nil {
		return router.ErrAppStateNotReady
	}
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/")
	})
	r.GET("/health", healthHandler)
	r.GET("/readyz", readyHandler)
	resolveChain := []gin.HandlerFunc{size.BodySizeLimiter(state.Config.Server.MaxBodyBytes)}
	if limiter != nil {
		resolveChain = append(resolveChain, limiter)
	}
	resolveChain = append(resolveChain, resolveHandler)
	r.POST("/resolve", resolveChain...)
	setupSwaggerAndDocs(r)
	logger.FromContext(ctx).Info("Completed route registration",
		"compile_mode", state.Config.Schema.CompileMode,
		"max_body_bytes", state.Config.Server.MaxBodyBytes,
		"rate_limited", limiter != nil,
	)
	return nil
}
