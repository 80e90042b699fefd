package cli

import (
	"context"

	"github.com/renovate-resolver/resolver/cli/cmd/schema"
	"github.com/renovate-resolver/resolver/cli/cmd/serve"
	"github.com/renovate-resolver/resolver/pkg/config"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/renovate-resolver/resolver/pkg/version"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagPaths maps persistent flags onto configuration keys.
var flagPaths = map[string]string{
	"log-level":    "runtime.log_level",
	"log-json":     "runtime.log_json",
	"log-source":   "runtime.log_source",
	"host":         "server.host",
	"port":         "server.port",
	"schema-url":   "schema.url",
	"schema-file":  "schema.file",
	"compile-mode": "schema.compile_mode",
}

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "renovate-resolver",
		Short:             "Validate Renovate configs and resolve their presets over HTTP",
		Version:           version.Get().String(),
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return SetupGlobalConfig(cmd) },
		RunE:              serve.Execute,
	}
	flags := root.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.String("env-file", ".env", "Path to a dotenv file loaded before reading the environment")
	flags.String("host", "", "Host interface to bind")
	flags.Int("port", 0, "Port to listen on")
	flags.String("schema-url", "", "URL of the Renovate JSON schema")
	flags.String("schema-file", "", "Read the Renovate JSON schema from this file instead of the URL")
	flags.String("compile-mode", "", "Schema compilation mode (eager, lazy)")

	root.AddCommand(
		serve.NewCommand(),
		schema.NewCommand(afero.NewOsFs()),
	)
	return root
}

// SetupGlobalConfig loads configuration and logging for cmd and stores both in its context.
// Precedence, lowest first: defaults, .env file, environment, flags.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var envFile string
	if f := cmd.Flag("env-file"); f != nil {
		envFile = f.Value.String()
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	loader := config.NewLoader()
	cfg, err := loader.Load(ctx, config.NewCLIProvider(flagOverrides(cmd.Flags())))
	if err != nil {
		return err
	}
	log := logger.SetupLogger(logger.LogLevel(cfg.Runtime.LogLevel), cfg.Runtime.LogJSON, cfg.Runtime.LogSource)
	for _, o := range loader.Overrides() {
		log.Debug("Configuration override", "key", o.Key, "source", o.Source, "value", o.Value)
	}
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	return nil
}

// flagOverrides returns the config values of flags set explicitly on the command line.
func flagOverrides(flags *pflag.FlagSet) map[string]any {
	out := make(map[string]any)
	flags.Visit(func(f *pflag.Flag) {
		if path, ok := flagPaths[f.Name]; ok {
			out[path] = f.Value.String()
		}
	})
	return out
}
