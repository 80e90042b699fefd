package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.CustomRecovery(Recovery))
	r.Use(ErrorHandler())
	r.NoRoute(NotFound)
	return r
}

func serve(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, resolve.ErrorBody) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	r.ServeHTTP(w, req)
	var body resolve.ErrorBody
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestRequestError(t *testing.T) {
	t.Run("Should include the cause in the message and unwrap to it", func(t *testing.T) {
		err := NewRequestError(http.StatusBadRequest, MsgBodyReadError, ErrBodyUnreadable)
		assert.Equal(t, "Failed to read request body: request body could not be read", err.Error())
		assert.ErrorIs(t, err, ErrBodyUnreadable)
	})

	t.Run("Should fall back to the reason without a cause", func(t *testing.T) {
		err := NewRequestError(http.StatusNotFound, MsgNotFound, nil)
		assert.Equal(t, MsgNotFound, err.Error())
	})
}

func TestErrorHandler(t *testing.T) {
	t.Run("Should render a request error with its own status", func(t *testing.T) {
		r := newEngine()
		r.GET("/big", func(c *gin.Context) {
			_ = c.Error(NewRequestError(http.StatusRequestEntityTooLarge, MsgBodyTooLarge, ErrBodyTooLarge))
		})
		w, body := serve(t, r, "/big")
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, MsgBodyTooLarge, body.Error)
	})

	t.Run("Should hide unexpected errors behind a generic 500", func(t *testing.T) {
		r := newEngine()
		r.GET("/boom", func(c *gin.Context) {
			_ = c.Error(errors.New("database exploded"))
		})
		w, body := serve(t, r, "/boom")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, resolve.MsgInternalError, body.Error)
	})

	t.Run("Should leave responses that were already written alone", func(t *testing.T) {
		r := newEngine()
		r.GET("/written", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
			_ = c.Error(errors.New("late"))
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	})
}

func TestNotFoundAndRecovery(t *testing.T) {
	t.Run("Should answer unknown routes with a JSON 404", func(t *testing.T) {
		w, body := serve(t, newEngine(), "/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, MsgNotFound, body.Error)
	})

	t.Run("Should turn a panic into the generic 500 body", func(t *testing.T) {
		r := newEngine()
		r.GET("/panic", func(_ *gin.Context) {
			panic("boom")
		})
		w, body := serve(t, r, "/panic")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, resolve.MsgInternalError, body.Error)
	})
}
