package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/output"
	"github.com/sofmeright/lintcascade/src/resolve"
	"github.com/sofmeright/lintcascade/src/rules/builtin"
)

var (
	cfgFiles          []string
	enableAllRules    bool
	ignoreParentChild bool
	cachePath         string
	verbose           bool
	format            string

	workDir  string
	logger   *slog.Logger
	warnings *config.Collector
	registry *prometheus.Registry
	resolver *resolve.Resolver
)

var rootCmd = &cobra.Command{
	Use:   "lintcascade",
	Short: "Resolve hierarchical lint configuration",
	Long: `lintcascade resolves the effective lint configuration of every file
from command-line, parent, child, nested and remote configuration files.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		// Skip resolver setup for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		switch format {
		case output.FormatText, output.FormatYAML, output.FormatJSON, output.FormatTOML:
		default:
			return fmt.Errorf("unsupported --format %q (supported: text, yaml, json, toml)", format)
		}

		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}

		warnings = config.NewCollector(nil)
		registry = prometheus.NewRegistry()
		resolver = resolve.New(resolve.Options{
			WorkDir: workDir,
			Catalog: builtin.Catalog(),
			Sink:    warnings,
			Logger:  logger,
			Metrics: resolve.NewMetrics(registry),
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && registry != nil {
			logCacheMetrics()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVar(&cfgFiles, "config", nil, "configuration file, repeatable (default: "+config.DefaultFileName+")")
	rootCmd.PersistentFlags().BoolVar(&enableAllRules, "enable-all-rules", false, "enable every rule regardless of configuration")
	rootCmd.PersistentFlags().BoolVar(&ignoreParentChild, "ignore-parent-child", false, "ignore parent_config and child_config references")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache-path", "", "override cache_path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&format, "format", output.FormatText, "output format: text, yaml, json or toml")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if warnings != nil {
		output.Warnings(os.Stderr, warnings.Warnings(), output.UseColor())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func loadRoot(ctx context.Context) (*config.Config, error) {
	return resolver.LoadRootConfiguration(ctx, cfgFiles, resolve.LoadOptions{
		EnableAllRules:       enableAllRules,
		IgnoreParentAndChild: ignoreParentChild,
		CachePath:            cachePath,
	})
}

func logCacheMetrics() {
	families, err := registry.Gather()
	if err != nil {
		logger.Debug("gathering metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			logger.Debug("cache", append(attrs, "value", value)...)
		}
	}
}
