package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/infra/server/appstate"
	"github.com/renovate-resolver/resolver/engine/infra/server/router"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"github.com/renovate-resolver/resolver/pkg/logger"
)

// resolveHandler godoc
//
//	@Summary		Resolve a Renovate config
//	@Description	Validates the document against the Renovate schema and expands every extends preset.
//	@Tags			Resolve
//	@Accept			json
//	@Produce		json
//	@Param			config	body		object					true	"Renovate configuration"
//	@Success		200		{object}	map[string]any			"Resolved config"
//	@Failure		400		{object}	resolve.ErrorBody		"Invalid Renovate config"
//	@Failure		413		{object}	resolve.ErrorBody		"Request body too large"
//	@Failure		429		{object}	resolve.ErrorBody		"Too many requests"
//	@Failure		500		{object}	resolve.ErrorBody		"Internal server error"
//	@Router			/resolve [post]
func resolveHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	state, err := appstate.GetState(ctx)
	if err != nil {
		_ = c.Error(router.NewRequestError(
			http.StatusInternalServerError, resolve.MsgInternalError, fmt.Errorf("%w: %w", router.ErrInternal, err),
		))
		return
	}
	body, err := readJSONBody(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(router.NewRequestError(
				http.StatusRequestEntityTooLarge, router.MsgBodyTooLarge, fmt.Errorf("%w: %w", router.ErrBodyTooLarge, err),
			))
			return
		}
		_ = c.Error(router.NewRequestError(
			http.StatusBadRequest, router.MsgBodyReadError, fmt.Errorf("%w: %w", router.ErrBodyUnreadable, err),
		))
		return
	}
	out := state.Orchestrator.Handle(ctx, body)
	if out.Dropped {
		log.Warn("Response not delivered, client disconnected", "state", out.State.String())
		c.Abort()
		return
	}
	c.JSON(out.Status, out.Body)
}

// readJSONBody returns the request body, or nothing when the request declares a
// non-JSON content type so that it resolves as an empty config.
func readJSONBody(c *gin.Context) ([]byte, error) {
	if ct := c.GetHeader("Content-Type"); ct != "" && !isJSONMediaType(ct) {
		logger.FromContext(c.Request.Context()).Debug("Ignoring non-JSON request body", "content_type", ct)
		return nil, nil
	}
	return io.ReadAll(c.Request.Body)
}

func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/json" {
		return true
	}
	return strings.HasSuffix(mediaType, "+json")
}
