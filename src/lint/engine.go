// Package lint prepares a lint run: it collects candidate files and computes
// the effective configuration and active rule set of each one.
package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/resolve"
)

// ErrNoLintableFiles is returned by Plan when every file was filtered out and
// the configuration does not allow that.
var ErrNoLintableFiles = errors.New("no lintable files found")

// Engine plans lint runs against one root configuration.
type Engine struct {
	fs       afero.Fs
	resolver *resolve.Resolver
	root     *config.Config
	rootDir  string
	workers  int64
	logger   *slog.Logger
}

// EngineOptions configures NewEngine.
type EngineOptions struct {
	Fs       afero.Fs
	Resolver *resolve.Resolver
	Root     *config.Config
	// RootDir is the directory walked by CollectFiles.
	RootDir string
	// Workers bounds concurrent resolution; 0 means twice the CPU count.
	Workers int
	Logger  *slog.Logger
}

// NewEngine creates a planning engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Resolver == nil || opts.Root == nil {
		return nil, fmt.Errorf("lint: resolver and root configuration are required")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU() * 2
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		fs:       opts.Fs,
		resolver: opts.Resolver,
		root:     opts.Root,
		rootDir:  filepath.Clean(opts.RootDir),
		workers:  int64(opts.Workers),
		logger:   opts.Logger,
	}, nil
}

// CollectFiles walks the root directory and returns every regular file the
// root configuration does not exclude. Hidden directories are skipped.
func (e *Engine) CollectFiles() ([]FileInfo, error) {
	var files []FileInfo

	err := afero.Walk(e.fs, e.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(e.rootDir, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			base := filepath.Base(rel)
			if strings.HasPrefix(base, ".") && base != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if !e.root.Lintable(path) {
			return nil
		}

		files = append(files, FileInfo{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting files under %s: %w", e.rootDir, err)
	}
	return files, nil
}

// Plan resolves the effective configuration of each file concurrently.
// Files excluded by their own effective configuration are dropped. The
// returned plans keep the order of files.
func (e *Engine) Plan(ctx context.Context, files []FileInfo) ([]FilePlan, PlanStats, error) {
	plans := make([]*FilePlan, len(files))
	sem := semaphore.NewWeighted(e.workers)
	g, gctx := errgroup.WithContext(ctx)

	for i, file := range files {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			cfg, err := e.resolver.ResolveForFile(gctx, e.root, file.AbsPath)
			if err != nil {
				return err
			}
			if !cfg.Lintable(file.AbsPath) {
				e.logger.Debug("excluded by configuration", "path", file.Path, "config", cfg.Origin)
				return nil
			}
			plans[i] = &FilePlan{
				File:   file,
				Config: cfg,
				Rules:  cfg.ResultingRules(e.resolver.Catalog()),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, PlanStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, PlanStats{}, err
	}

	stats := PlanStats{}
	configs := map[*config.Config]bool{}
	out := make([]FilePlan, 0, len(files))
	for _, p := range plans {
		if p == nil {
			stats.Excluded++
			continue
		}
		configs[p.Config] = true
		out = append(out, *p)
	}
	stats.Files = len(out)
	stats.Configs = len(configs)

	if len(out) == 0 && !allowsZero(e.root) {
		return nil, stats, ErrNoLintableFiles
	}
	return out, stats, nil
}

func allowsZero(cfg *config.Config) bool {
	return cfg.AllowZeroLintableFiles != nil && *cfg.AllowZeroLintableFiles
}
