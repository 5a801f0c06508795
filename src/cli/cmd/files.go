package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/lintcascade/src/lint"
	"github.com/sofmeright/lintcascade/src/output"
)

var (
	filesChanged bool
	filesBranch  string
	filesWorkers int
)

var filesCmd = &cobra.Command{
	Use:   "files [dir]",
	Short: "Plan a lint run: list lintable files with their rule sets",
	Long: `Walk a directory, filter it through the effective configuration of
each file, and print every lintable file with the number of active rules
and the configuration that governs it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().BoolVar(&filesChanged, "changed", false, "only files changed against the target branch")
	filesCmd.Flags().StringVar(&filesBranch, "target-branch", "", "branch to diff against with --changed")
	filesCmd.Flags().IntVar(&filesWorkers, "workers", 0, "concurrent resolutions (default: 2x CPU)")
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	dir := workDir
	if len(args) == 1 {
		dir = args[0]
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(workDir, dir)
		}
	}

	root, err := loadRoot(ctx)
	if err != nil {
		return err
	}

	engine, err := lint.NewEngine(lint.EngineOptions{
		Resolver: resolver,
		Root:     root,
		RootDir:  dir,
		Workers:  filesWorkers,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	files, err := engine.CollectFiles()
	if err != nil {
		return err
	}
	if filesChanged {
		delta := &lint.Delta{RootDir: dir, TargetBranch: filesBranch, Logger: logger}
		changed, err := delta.ChangedFiles(ctx)
		if err != nil {
			return fmt.Errorf("detecting changed files: %w", err)
		}
		files = lint.FilterByDelta(files, changed)
	}

	plans, stats, err := engine.Plan(ctx, files)
	if err != nil && !errors.Is(err, lint.ErrNoLintableFiles) {
		return err
	}

	color := output.UseColor()
	sec := output.NewSection(os.Stdout, "Files", time.Since(start), color)
	output.PlanTable(sec, plans, stats, color)
	sec.Close()
	return err
}
