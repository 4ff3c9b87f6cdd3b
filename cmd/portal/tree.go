package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/joeblew999/plat-portal/internal/config"
	"github.com/joeblew999/plat-portal/internal/service"
)

// newTreeCmd returns the tree subcommand: one offline resolution of the
// catalog into a layer tree.
func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Build the layer tree once and print it with its diagnostics",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			source, _ := cmd.Flags().GetString("catalog")
			category, _ := cmd.Flags().GetString("category")
			useYAML, _ := cmd.Flags().GetBool("yaml")

			res, err := buildTree(cmd.Context(), opts, newLogger(opts), source, category)
			if err != nil {
				fatal("Error building tree", err)
			}
			if err := printDoc(res, useYAML); err != nil {
				fatal("Error printing tree", err)
			}
		}),
	}
	cmd.Flags().StringP("catalog", "c", "", "Catalog file or URL (overrides catalog.source)")
	cmd.Flags().String("category", "", "Category key to group by (default: the active category)")
	cmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	return cmd
}

func buildTree(ctx context.Context, opts *Options, logger *slog.Logger, source, category string) (*service.TreeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if source != "" {
		cfg.Catalog.Source = source
	}

	catalogs := service.NewCatalogService(cfg.Catalog, nil, nil, logger)
	if _, err := catalogs.Reload(ctx); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	overrides := service.NewOverrideService(opts.DataDir, nil, logger)
	tree, err := service.NewTreeService(cfg, catalogs, overrides, nil, logger)
	if err != nil {
		return nil, err
	}
	if category != "" {
		return tree.SelectCategory(ctx, category)
	}
	return tree.Tree(ctx)
}
