package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/output"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file...]",
	Short: "Print the effective configuration of files",
	Long: `Print the configuration that applies to each file: the root configuration
with every nested configuration file between it and the file merged on top.
Without arguments the root configuration itself is printed.`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	root, err := loadRoot(ctx)
	if err != nil {
		return err
	}
	cat := resolver.Catalog()

	if len(args) == 0 {
		args = []string{""}
	}

	configs := make([]*config.Config, len(args))
	docs := make([]output.Document, len(args))
	for i, file := range args {
		cfg := root
		if file != "" {
			if cfg, err = resolver.ResolveForFile(ctx, root, file); err != nil {
				return err
			}
		}
		configs[i] = cfg
		docs[i] = output.NewDocument(file, cfg, cat)
	}
	logger.Debug("resolved", "files", len(args), "elapsed", time.Since(start))

	if format != output.FormatText {
		return output.Render(os.Stdout, format, docs...)
	}

	color := output.UseColor()
	for i, file := range args {
		name := file
		if name == "" {
			name = "root"
		}
		var elapsed time.Duration
		if i == 0 {
			elapsed = time.Since(start)
		}
		sec := output.NewSection(os.Stdout, name, elapsed, color)
		output.ConfigSection(sec, configs[i], cat, color)
		sec.Close()
	}
	return nil
}
