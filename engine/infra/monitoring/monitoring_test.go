package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/renovate-resolver/resolver/engine/preset"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept the default path", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
	t.Run("Should reject invalid paths", func(t *testing.T) {
		for _, p := range []string{"", "metrics", "/metrics?x=1", "/resolve", "/api-docs/metrics", "/health"} {
			cfg := &Config{Enabled: true, Path: p}
			assert.Error(t, cfg.Validate(), p)
		}
	})
}

func TestService(t *testing.T) {
	t.Run("Should return a no-op service when disabled", func(t *testing.T) {
		svc, err := NewService(context.Background(), &Config{Enabled: false, Path: "/metrics"})
		require.NoError(t, err)
		assert.False(t, svc.IsInitialized())
		assert.Nil(t, svc.Resolver())
		rec := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NoError(t, svc.Shutdown(context.Background()))
	})

	t.Run("Should fall back to no-op on invalid config", func(t *testing.T) {
		svc := NewServiceWithFallback(context.Background(), &Config{Enabled: true, Path: "/resolve"})
		assert.False(t, svc.IsInitialized())
		assert.Error(t, svc.InitializationError())
	})

	t.Run("Should expose domain metrics in Prometheus format", func(t *testing.T) {
		svc, err := NewService(context.Background(), DefaultConfig())
		require.NoError(t, err)
		defer func() { _ = svc.Shutdown(context.Background()) }()
		svc.Resolver().ObserveCompile(10*time.Millisecond, nil)
		svc.Resolver().ObserveOutcome(context.Background(), resolve.StateCompleted, time.Millisecond)

		srv := httptest.NewServer(svc.ExporterHandler())
		defer srv.Close()
		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var parser expfmt.TextParser
		families, err := parser.TextToMetricFamilies(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, families, "renovate_resolver_schema_compilations_total")
		assert.Contains(t, families, "renovate_resolver_build_info")
		requests, ok := families["renovate_resolver_resolve_requests_total"]
		require.True(t, ok)
		assert.Equal(t, dto.MetricType_COUNTER, requests.GetType())
		assert.Equal(t, 1.0, counterWithLabel(requests, "state", "completed"))
	})
}

func counterWithLabel(family *dto.MetricFamily, name, value string) float64 {
	for _, m := range family.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == name && l.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestResolverMetrics(t *testing.T) {
	t.Run("Should ignore calls on a nil receiver", func(t *testing.T) {
		var m *ResolverMetrics
		assert.NotPanics(t, func() {
			m.ObserveCompile(time.Second, nil)
			m.ObserveValidation(context.Background(), false, 3, time.Second)
			m.ObserveOutcome(context.Background(), resolve.StateUnhandled, time.Second)
			m.ObservePresetFetch(preset.KindGitHub, time.Second, errors.New("boom"))
		})
	})

	t.Run("Should count outcomes by state and fetches by source", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		svc, err := NewServiceWithReader(context.Background(), reader)
		require.NoError(t, err)
		m := svc.Resolver()
		ctx := context.Background()
		m.ObserveValidation(ctx, false, 3, time.Millisecond)
		m.ObserveValidation(ctx, true, 0, time.Millisecond)
		m.ObserveOutcome(ctx, resolve.StateValidationFailed, time.Millisecond)
		m.ObserveOutcome(ctx, resolve.StateCompleted, time.Millisecond)
		m.ObserveOutcome(ctx, resolve.StateCompleted, time.Millisecond)
		m.ObservePresetFetch(preset.KindNPM, time.Millisecond, nil)
		m.ObservePresetFetch(preset.KindNPM, time.Millisecond, errors.New("down"))
		m.ObserveCompile(time.Millisecond, errors.New("bad schema"))

		got := collect(t, reader)
		assert.Equal(t, int64(2), sumValue(t, got["renovate_resolver_resolve_requests_total"], "state", "completed"))
		assert.Equal(t, int64(1), sumValue(t, got["renovate_resolver_resolve_requests_total"], "state", "validation_failed"))
		assert.Equal(t, int64(1), sumValue(t, got["renovate_resolver_validations_total"], "verdict", "invalid"))
		assert.Equal(t, int64(3), sumValue(t, got["renovate_resolver_validation_violations_total"], "", ""))
		assert.Equal(t, int64(1), sumValue(t, got["renovate_resolver_preset_fetches_total"], "result", "error"))
		assert.Equal(t, int64(2), sumValue(t, got["renovate_resolver_preset_fetches_total"], "source", "npm"))
		assert.Equal(t, int64(1), sumValue(t, got["renovate_resolver_schema_compilations_total"], "result", "error"))
	})
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Run("Should label requests by route template", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		svc, err := NewServiceWithReader(context.Background(), reader)
		require.NoError(t, err)
		r := gin.New()
		r.Use(svc.GinMiddleware())
		r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		for _, p := range []string{"/health", "/health", "/nope"} {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
		}
		got := collect(t, reader)
		total := got["renovate_resolver_http_requests_total"]
		assert.Equal(t, int64(2), sumValue(t, total, "path", "/health"))
		assert.Equal(t, int64(1), sumValue(t, total, "path", "unmatched"))
		assert.True(t, strings.HasPrefix(total.Name, "renovate_resolver_"))
	})
}
