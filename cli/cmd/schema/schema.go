package schema

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/renovate-resolver/resolver/cli/helpers"
	"github.com/renovate-resolver/resolver/engine/resolve"
	engineschema "github.com/renovate-resolver/resolver/engine/schema"
	"github.com/renovate-resolver/resolver/pkg/config"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

const defaultOutput = "renovate-schema.json"

// NewCommand groups schema maintenance subcommands. fs is where files are read and written.
func NewCommand(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Download the Renovate schema or validate configs against it",
	}
	cmd.AddCommand(newFetchCommand(fs), newValidateCommand(fs))
	return cmd
}

func newFetchCommand(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the Renovate schema and save it pretty-printed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			return fetch(cmd, fs, out)
		},
	}
	cmd.Flags().StringP("out", "o", defaultOutput, "Output file")
	return cmd
}

func fetch(cmd *cobra.Command, fs afero.Fs, out string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)
	if out == "" {
		return &helpers.FlagError{Flag: "out", Value: out}
	}
	src := schemaSource(fs, &cfg.Schema)
	log.Info("Fetching Renovate schema", "location", src.Location())
	raw, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%w: response is %s, not JSON", engineschema.ErrSchemaAcquisition, mimetype.Detect(raw).String())
	}
	if err := afero.WriteFile(fs, out, pretty.Pretty(raw), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	log.Info("Renovate schema saved", "path", out, "bytes", len(raw))
	return nil
}

func newValidateCommand(fs afero.Fs) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.json>...",
		Short: "Validate Renovate config files against the schema without resolving presets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(cmd, fs, args)
		},
	}
}

func validate(cmd *cobra.Command, fs afero.Fs, files []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	cache := engineschema.NewCache(schemaSource(fs, &cfg.Schema))
	v, err := cache.Get(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, file := range files {
		data, err := afero.ReadFile(fs, file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		doc, err := resolve.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		result := v.Validate(doc)
		if result.Valid {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", file)
			continue
		}
		failed++
		for _, violation := range result.Violations {
			path := violation.Path
			if path == "" {
				path = "/"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s: %s\n", file, path, violation.Message)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d config(s) failed validation", failed, len(files))
	}
	return nil
}

func schemaSource(fs afero.Fs, cfg *config.SchemaConfig) engineschema.Source {
	if cfg.File != "" {
		return engineschema.NewFileSourceFS(fs, cfg.File)
	}
	return engineschema.NewHTTPSource(cfg.URL,
		engineschema.WithHTTPTimeout(cfg.Timeout),
		engineschema.WithMaxRetries(cfg.MaxRetries),
	)
}
