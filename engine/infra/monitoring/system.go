package monitoring

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/renovate-resolver/resolver/engine/infra/monitoring/metrics"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/renovate-resolver/resolver/pkg/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// registerSystemMetrics exports build information and process uptime.
func registerSystemMetrics(ctx context.Context, meter metric.Meter) (metric.Registration, error) {
	log := logger.FromContext(ctx)
	buildInfo, err := meter.Int64ObservableGauge(
		metrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64ObservableGauge(
		metrics.MetricName("uptime_seconds"),
		metric.WithDescription("Service uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ver, commit, goVersion := buildDetails()
	attrs := metric.WithAttributes(
		attribute.String("version", ver),
		attribute.String("commit_hash", commit),
		attribute.String("go_version", goVersion),
	)
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(buildInfo, 1, attrs)
		o.ObserveFloat64(uptime, time.Since(start).Seconds())
		return nil
	}, buildInfo, uptime)
	if err != nil {
		return nil, err
	}
	log.Debug("System metrics registered", "version", ver, "commit", commit, "go_version", goVersion)
	return reg, nil
}

// buildDetails prefers ldflags-injected values and falls back to the embedded build info.
func buildDetails() (ver, commit, goVersion string) {
	info := version.Get()
	ver, commit = info.Version, info.CommitHash
	if bi, ok := debug.ReadBuildInfo(); ok {
		if ver == version.Unknown && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			ver = bi.Main.Version
		}
		if commit == version.Unknown {
			for _, setting := range bi.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}
	return ver, commit, runtime.Version()
}
