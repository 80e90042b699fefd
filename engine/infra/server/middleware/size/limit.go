package size

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/infra/server/router"
)

// BodySizeLimiter limits the request body size for the route group.
// Requests announcing a larger Content-Length are rejected before the body is read.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			router.RespondWithError(c, http.StatusRequestEntityTooLarge, router.MsgBodyTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
