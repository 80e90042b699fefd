package serve

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/cli/helpers"
	"github.com/renovate-resolver/resolver/engine/infra/server"
	"github.com/renovate-resolver/resolver/pkg/config"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/spf13/cobra"
)

// NewCommand creates the serve command. It is also the root command's default action.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the resolver HTTP server",
		Long:    "Fetch and compile the Renovate schema, then serve /resolve, probes, docs and metrics",
		Args:    cobra.NoArgs,
		RunE:    Execute,
	}
}

func Execute(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)
	if cfg.Runtime.LogLevel != string(logger.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := helpers.EnsurePortAvailable(ctx, cfg.Server.Host, cfg.Server.Port); err != nil {
		return err
	}
	log.Info("Starting Renovate resolver",
		"address", cfg.Server.FullAddress(),
		"compile_mode", cfg.Schema.CompileMode,
	)
	srv, err := server.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run()
}
