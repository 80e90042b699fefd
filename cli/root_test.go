package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/renovate-resolver/resolver/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should apply explicit flags over defaults", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags([]string{
			"--env-file=", "--port=8088", "--compile-mode=lazy", "--log-level=disabled",
		}))

		require.NoError(t, SetupGlobalConfig(cmd))

		cfg := config.FromContext(cmd.Context())
		assert.Equal(t, 8088, cfg.Server.Port)
		assert.Equal(t, config.CompileLazy, cfg.Schema.CompileMode)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	})

	t.Run("Should read variables from the env file", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("PRESETS_MAX_DEPTH=4\n"), 0o600))
		t.Setenv("PRESETS_MAX_DEPTH", "")
		require.NoError(t, os.Unsetenv("PRESETS_MAX_DEPTH"))

		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--env-file=" + envPath, "--log-level=disabled"}))

		require.NoError(t, SetupGlobalConfig(cmd))

		assert.Equal(t, 4, config.FromContext(cmd.Context()).Presets.MaxDepth)
	})

	t.Run("Should reject invalid flag values through validation", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--env-file=", "--compile-mode=sometimes"}))

		err := SetupGlobalConfig(cmd)

		require.Error(t, err)
	})
}

func TestSetupGlobalConfig_Subcommand(t *testing.T) {
	t.Run("Should see root flags given to a subcommand", func(t *testing.T) {
		root := RootCmd()
		sub, _, err := root.Find([]string{"schema", "validate"})
		require.NoError(t, err)
		require.NoError(t, sub.ParseFlags([]string{"--env-file=", "--port=8099", "--log-level=disabled"}))

		require.NoError(t, SetupGlobalConfig(sub))

		assert.Equal(t, 8099, config.FromContext(sub.Context()).Server.Port)
	})

	t.Run("Should load without parsed flags", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "disabled")
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))

		require.NoError(t, SetupGlobalConfig(cmd))

		assert.Equal(t, "disabled", config.FromContext(cmd.Context()).Runtime.LogLevel)
	})
}

func TestRootCmd(t *testing.T) {
	t.Run("Should register serve and schema commands", func(t *testing.T) {
		cmd := RootCmd()
		names := map[string]bool{}
		for _, c := range cmd.Commands() {
			names[c.Name()] = true
		}
		assert.True(t, names["serve"])
		assert.True(t, names["schema"])
	})
}
