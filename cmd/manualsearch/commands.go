package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/manualrag/internal/app"
	"github.com/kailas-cloud/manualrag/internal/config"
	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/manualrag/internal/logger"
	chiTransport "github.com/kailas-cloud/manualrag/internal/transport/chi"
	"github.com/kailas-cloud/manualrag/internal/version"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "manualsearch",
		Short:         "Search indexed product manuals across text, tables and page images",
		Version:       version.String(),
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Config file (default: config/<ENV>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"Log level for stderr diagnostics")

	cmd.AddCommand(
		newSearchCmd(opts),
		newManualCmd(opts),
		newProductsCmd(opts),
		newCategoriesCmd(opts),
	)
	return cmd
}

// withApp loads the config, builds the application and hands it to fn.
func withApp(ctx context.Context, opts *rootOptions, fn func(a *app.App) error) error {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, opts.logLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Mode() == result.ModeSubstring {
		logger.Warn("Running in substring mode, results are text-only")
	}
	return fn(a)
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		topK     int
		category string
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search every manual, or the manuals of one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				k := resolveTopK(topK, a.Config.Search.DefaultTopK)
				ctx, usage := domain.NewContextWithUsage(cmd.Context())

				var (
					res result.Multi
					err error
				)
				if category != "" {
					res, err = a.Manuals.SearchByCategory(ctx, query, category, k, nil)
				} else {
					res, err = a.Manuals.SearchAll(ctx, query, k, nil)
				}
				if err != nil {
					return err
				}
				reportUsage(cmd, usage)
				return printJSON(cmd.OutOrStdout(), chiTransport.SearchResponse{
					Query:    query,
					Category: category,
					Multi:    res,
					Evidence: a.Evidence.BuildMulti(res),
				})
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Results per modality (default from config)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict to one product category")
	return cmd
}

func newManualCmd(opts *rootOptions) *cobra.Command {
	var (
		topK                    int
		wText, wTables, wImages float64
	)
	cmd := &cobra.Command{
		Use:   "manual PRODUCT QUERY",
		Short: "Search a single manual",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, query := args[0], args[1]
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				mm, err := a.Manuals.Manual(product)
				if err != nil {
					return err
				}

				var weights *result.Weights
				flags := cmd.Flags()
				if flags.Changed("w-text") || flags.Changed("w-tables") || flags.Changed("w-images") {
					w := a.Manuals.Weights()
					if flags.Changed("w-text") {
						w.Text = wText
					}
					if flags.Changed("w-tables") {
						w.Tables = wTables
					}
					if flags.Changed("w-images") {
						w.Images = wImages
					}
					weights = &w
				}

				ctx, usage := domain.NewContextWithUsage(cmd.Context())
				res, err := a.Manuals.SearchProduct(ctx, mm.Product.Name, query,
					resolveTopK(topK, a.Config.Search.DefaultTopK), weights)
				if err != nil {
					return err
				}
				reportUsage(cmd, usage)
				return printJSON(cmd.OutOrStdout(), chiTransport.ManualSearchResponse{
					Query:    query,
					Product:  mm.Product,
					Result:   res,
					Evidence: a.Evidence.Build(mm.Product, res),
				})
			})
		},
	}
	defaults := result.DefaultWeights()
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Results per modality (default from config)")
	cmd.Flags().Float64Var(&wText, "w-text", defaults.Text, "Text modality weight")
	cmd.Flags().Float64Var(&wTables, "w-tables", defaults.Tables, "Table modality weight")
	cmd.Flags().Float64Var(&wImages, "w-images", defaults.Images, "Image modality weight")
	return cmd
}

func newProductsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the loaded products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				products := a.Manuals.Products()
				categories := a.Manuals.Categories()
				return printJSON(cmd.OutOrStdout(), chiTransport.ProductsResponse{
					Products:        products,
					Categories:      categories,
					TotalProducts:   len(products),
					TotalCategories: len(categories),
				})
			})
		},
	}
}

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the product categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				categories := a.Manuals.Categories()
				return printJSON(cmd.OutOrStdout(), chiTransport.CategoriesResponse{
					Categories: categories,
					Total:      len(categories),
				})
			})
		},
	}
}

func resolveTopK(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}

func reportUsage(cmd *cobra.Command, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		cmd.PrintErrf("embedding tokens: %d\n", usage.TotalTokens())
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
