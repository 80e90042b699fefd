package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"github.com/renovate-resolver/resolver/pkg/logger"
)

// Common sentinel errors
var (
	ErrInternal         = errors.New("internal server error")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrBodyUnreadable   = errors.New("request body could not be read")
	ErrAppStateNotReady = errors.New("application state not initialized")
)

// Error messages returned to clients.
const (
	MsgNotFound      = "Not Found"
	MsgBodyTooLarge  = "Request body too large"
	MsgBodyReadError = "Failed to read request body"
	MsgTooManyCalls  = "Too Many Requests"
)

// RequestError carries the status and client-facing reason for a failed request.
type RequestError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError
func NewRequestError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{
		StatusCode: statusCode,
		Reason:     reason,
		Err:        err,
	}
}

// RespondWithError writes the {"error": ...} body used by every endpoint and aborts the chain.
func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, resolve.ErrorBody{Error: message})
}

// ErrorHandler renders errors attached with c.Error by earlier handlers.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		log := logger.FromContext(c.Request.Context())
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			log.Warn("Request failed", "status", reqErr.StatusCode, "error", err)
			RespondWithError(c, reqErr.StatusCode, reqErr.Reason)
			return
		}
		log.Error("Unhandled error", "error", err)
		RespondWithError(c, http.StatusInternalServerError, resolve.MsgInternalError)
	}
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	RespondWithError(c, http.StatusNotFound, MsgNotFound)
}

// Recovery turns a handler panic into the generic 500 body.
func Recovery(c *gin.Context, recovered any) {
	logger.FromContext(c.Request.Context()).Error("Unhandled error", "panic", recovered, "path", c.Request.URL.Path)
	RespondWithError(c, http.StatusInternalServerError, resolve.MsgInternalError)
}
