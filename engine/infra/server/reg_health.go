package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/infra/server/appstate"
	"github.com/renovate-resolver/resolver/pkg/logger"
)

// StatusResponse is returned by the health and readiness probes.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// healthHandler godoc
//
//	@Summary		Health check
//	@Description	Liveness probe. Never depends on the schema being compiled.
//	@Tags			Operations
//	@Produce		json
//	@Success		200	{object}	StatusResponse	"Service is healthy"
//	@Router			/health [get]
func healthHandler(c *gin.Context) {
	logger.FromContext(c.Request.Context()).Info("Health check requested")
	c.JSON(http.StatusOK, StatusResponse{Status: statusOK})
}

// readyHandler godoc
//
//	@Summary		Readiness check
//	@Description	Reports ready once the Renovate schema validator has been compiled.
//	@Tags			Operations
//	@Produce		json
//	@Success		200	{object}	StatusResponse	"Validator compiled"
//	@Failure		503	{object}	StatusResponse	"Validator not compiled yet"
//	@Router			/readyz [get]
func readyHandler(c *gin.Context) {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil || !state.Schemas.Ready() {
		c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: statusNotReady})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: statusReady})
}
