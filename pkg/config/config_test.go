package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestConfig_Default(t *testing.T) {
	t.Run("Should return valid default configuration", func(t *testing.T) {
		cfg := Default()

		require.NotNil(t, cfg)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Runtime.LogLevel)
		assert.Equal(t, CompileEager, cfg.Schema.CompileMode)
		assert.Equal(t, "https://docs.renovatebot.com/renovate-schema.json", cfg.Schema.URL)
		assert.Equal(t, 15*time.Minute, cfg.Presets.CacheTTL)
		assert.Equal(t, "0.0.0.0:3000", cfg.Server.FullAddress())
	})
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should load defaults when environment is empty", func(t *testing.T) {
		cfg, err := NewLoader().WithLookupEnv(envFrom(nil)).Load(t.Context())

		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("Should read PORT and LOG_LEVEL from the environment", func(t *testing.T) {
		loader := NewLoader().WithLookupEnv(envFrom(map[string]string{
			"PORT":      "8080",
			"LOG_LEVEL": "debug",
		}))

		cfg, err := loader.Load(t.Context())

		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
		assert.Equal(t, SourceEnv, loader.GetSource("server.port"))
		assert.Equal(t, SourceDefault, loader.GetSource("server.host"))
	})

	t.Run("Should parse durations and secrets", func(t *testing.T) {
		cfg, err := NewLoader().WithLookupEnv(envFrom(map[string]string{
			"PRESETS_CACHE_TTL": "90s",
			"GITHUB_TOKEN":      "ghp_secret",
		})).Load(t.Context())

		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Presets.CacheTTL)
		assert.Equal(t, "ghp_secret", cfg.Presets.GitHubToken.Value())
		assert.Equal(t, "[REDACTED]", cfg.Presets.GitHubToken.String())
	})

	t.Run("Should read monitoring and rate limit settings", func(t *testing.T) {
		cfg, err := NewLoader().WithLookupEnv(envFrom(map[string]string{
			"MONITORING_ENABLED": "false",
			"MONITORING_PATH":    "/internal/metrics",
			"RATE_LIMIT":         "30",
			"RATE_LIMIT_PERIOD":  "10s",
		})).Load(t.Context())

		require.NoError(t, err)
		assert.False(t, cfg.Monitoring.Enabled)
		assert.Equal(t, "/internal/metrics", cfg.Monitoring.Path)
		assert.Equal(t, int64(30), cfg.RateLimit.Limit)
		assert.Equal(t, 10*time.Second, cfg.RateLimit.Period)
	})

	t.Run("Should let CLI sources override the environment", func(t *testing.T) {
		loader := NewLoader().WithLookupEnv(envFrom(map[string]string{"PORT": "8080"}))

		cfg, err := loader.Load(t.Context(), NewCLIProvider(map[string]any{"server.port": 9090}))

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, SourceCLI, loader.GetSource("server.port"))
	})

	t.Run("Should list overrides with credentials redacted", func(t *testing.T) {
		loader := NewLoader().WithLookupEnv(envFrom(map[string]string{
			"PORT":         "8080",
			"GITHUB_TOKEN": "ghp_secret",
		}))

		_, err := loader.Load(t.Context(), NewCLIProvider(map[string]any{"runtime.log_level": "debug"}))

		require.NoError(t, err)
		assert.Equal(t, []Override{
			{Key: "presets.github_token", Source: SourceEnv, Value: "[REDACTED]"},
			{Key: "runtime.log_level", Source: SourceCLI, Value: "debug"},
			{Key: "server.port", Source: SourceEnv, Value: "8080"},
		}, loader.Overrides())
	})

	t.Run("Should reject invalid values", func(t *testing.T) {
		_, err := NewLoader().WithLookupEnv(envFrom(map[string]string{
			"SCHEMA_COMPILE_MODE": "sometimes",
		})).Load(t.Context())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})

	t.Run("Should reject an out of range port", func(t *testing.T) {
		_, err := NewLoader().WithLookupEnv(envFrom(map[string]string{"PORT": "70000"})).Load(t.Context())

		require.Error(t, err)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("Should ignore a missing file", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	})

	t.Run("Should export variables from the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("RESOLVER_TEST_ENV_FILE=loaded\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("RESOLVER_TEST_ENV_FILE") })

		require.NoError(t, LoadEnvFile(path))

		assert.Equal(t, "loaded", os.Getenv("RESOLVER_TEST_ENV_FILE"))
	})
}

func TestEnvMappings(t *testing.T) {
	t.Run("Should map struct tags to config paths", func(t *testing.T) {
		assert.Equal(t, "PORT", EnvVarFor("server.port"))
		assert.Equal(t, "LOG_LEVEL", EnvVarFor("runtime.log_level"))
		assert.Equal(t, "", EnvVarFor("server.unknown"))
	})

	t.Run("Should flag tokens as sensitive", func(t *testing.T) {
		assert.True(t, IsSensitivePath("presets.github_token"))
		assert.False(t, IsSensitivePath("presets.github_api_url"))
	})
}
