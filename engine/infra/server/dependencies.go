package server

import (
	"context"
	"fmt"
	"time"

	"github.com/renovate-resolver/resolver/engine/infra/monitoring"
	"github.com/renovate-resolver/resolver/engine/infra/server/appstate"
	"github.com/renovate-resolver/resolver/engine/preset"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"github.com/renovate-resolver/resolver/engine/schema"
	"github.com/renovate-resolver/resolver/pkg/config"
	"github.com/renovate-resolver/resolver/pkg/logger"
)

func (s *Server) setupDependencies() (*appstate.State, error) {
	log := logger.FromContext(s.ctx)
	setupStart := time.Now()
	s.setupMonitoring()
	metrics := s.monitoring.Resolver()

	source := s.schemaSource
	if source == nil {
		source = newSchemaSource(&s.config.Schema)
	}
	schemas := schema.NewCache(source, schema.WithCompileObserver(metrics.ObserveCompile))
	if s.config.Schema.CompileMode != config.CompileLazy {
		log.Info("Fetching Renovate schema", "location", source.Location())
		if err := schemas.Warm(s.ctx); err != nil {
			return nil, fmt.Errorf("could not prepare Renovate schema, server will not start: %w", err)
		}
	}

	resolver := s.resolver
	if resolver == nil {
		engine, err := preset.NewEngine(presetOptions(&s.config.Presets, metrics.ObservePresetFetch))
		if err != nil {
			return nil, fmt.Errorf("failed to create preset engine: %w", err)
		}
		resolver = engine
	}
	orch := resolve.NewOrchestrator(schemas, resolver, resolve.WithObserver(metrics))
	state, err := appstate.NewState(s.config, schemas, orch)
	if err != nil {
		return nil, fmt.Errorf("failed to create app state: %w", err)
	}
	log.Debug("Dependencies ready",
		"compile_mode", s.config.Schema.CompileMode,
		"duration", time.Since(setupStart),
	)
	return state, nil
}

func (s *Server) setupMonitoring() {
	log := logger.FromContext(s.ctx)
	if s.monitoring == nil {
		s.monitoring = monitoring.NewServiceWithFallback(s.ctx, &monitoring.Config{
			Enabled: s.config.Monitoring.Enabled,
			Path:    s.config.Monitoring.Path,
		})
	}
	if !s.monitoring.IsInitialized() {
		log.Info("Monitoring is disabled")
		return
	}
	svc := s.monitoring
	s.addCleanup(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), monitoringShutdownTimeout)
		defer cancel()
		if err := svc.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown monitoring service", "error", err)
		}
	})
}

func newSchemaSource(cfg *config.SchemaConfig) schema.Source {
	if cfg.File != "" {
		return schema.NewFileSource(cfg.File)
	}
	return schema.NewHTTPSource(cfg.URL,
		schema.WithHTTPTimeout(cfg.Timeout),
		schema.WithMaxRetries(cfg.MaxRetries),
	)
}

func presetOptions(cfg *config.PresetsConfig, observer preset.FetchObserver) preset.Options {
	opts := preset.DefaultOptions()
	opts.GitHubAPIURL = cfg.GitHubAPIURL
	opts.GitHubToken = cfg.GitHubToken.Value()
	opts.GitLabAPIURL = cfg.GitLabAPIURL
	opts.GitLabToken = cfg.GitLabToken.Value()
	opts.NPMRegistryURL = cfg.NPMRegistryURL
	opts.LocalPlatform = preset.Kind(cfg.LocalPlatform)
	opts.Timeout = cfg.Timeout
	opts.MaxRetries = cfg.MaxRetries
	opts.CacheSize = cfg.CacheSize
	opts.CacheTTL = cfg.CacheTTL
	opts.MaxDepth = cfg.MaxDepth
	opts.FetchObserver = observer
	return opts
}
