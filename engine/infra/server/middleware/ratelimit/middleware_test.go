package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRouterForTest(t *testing.T, cfg *Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	r.POST("/resolve", m.Middleware(), func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	return r
}

func doReq(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/resolve", http.NoBody)
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestManager_Middleware(t *testing.T) {
	t.Run("Should block the second request from the same client", func(t *testing.T) {
		r := buildRouterForTest(t, &Config{Rate: RateConfig{Limit: 1, Period: time.Second}, Prefix: "test:"})

		require.Equal(t, http.StatusOK, doReq(r, "1.2.3.4").Code)
		res := doReq(r, "1.2.3.4")
		require.Equal(t, http.StatusTooManyRequests, res.Code)
		assert.JSONEq(t, `{"error":"Too Many Requests"}`, res.Body.String())
	})

	t.Run("Should track clients independently", func(t *testing.T) {
		r := buildRouterForTest(t, &Config{Rate: RateConfig{Limit: 1, Period: time.Minute}, Prefix: "test:"})

		require.Equal(t, http.StatusOK, doReq(r, "10.0.0.1").Code)
		require.Equal(t, http.StatusOK, doReq(r, "10.0.0.2").Code)
	})

	t.Run("Should refill after the period", func(t *testing.T) {
		r := buildRouterForTest(t, &Config{Rate: RateConfig{Limit: 1, Period: 100 * time.Millisecond}, Prefix: "test:"})

		require.Equal(t, http.StatusOK, doReq(r, "5.6.7.8").Code)
		require.Equal(t, http.StatusTooManyRequests, doReq(r, "5.6.7.8").Code)
		time.Sleep(150 * time.Millisecond)
		require.Equal(t, http.StatusOK, doReq(r, "5.6.7.8").Code)
	})

	t.Run("Should set rate limit headers", func(t *testing.T) {
		r := buildRouterForTest(t, &Config{Rate: RateConfig{Limit: 2, Period: time.Minute}, Prefix: "test:"})

		res := doReq(r, "9.9.9.9")
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "2", res.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", res.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, res.Header().Get("X-RateLimit-Reset"))
	})
}

func TestNewManager(t *testing.T) {
	t.Run("Should reject a non-positive limit", func(t *testing.T) {
		_, err := NewManager(&Config{Rate: RateConfig{Limit: 0, Period: time.Minute}}, nil)
		require.Error(t, err)
	})
}
