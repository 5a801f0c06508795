// Package resolve computes effective configurations: it loads the root
// configuration with everything it references, then resolves the
// configuration that applies to each file by stacking nested
// per-directory configuration files on top of the root.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/remote"
	"github.com/sofmeright/lintcascade/src/rules"
)

// Options configures a Resolver.
type Options struct {
	Fs      afero.Fs
	WorkDir string
	Catalog *rules.Catalog
	// Remote fetches URL references; nil uses HTTP with a store in WorkDir.
	Remote *remote.Client
	Sink   config.Sink
	Logger *slog.Logger
	// Version is checked against required_version; empty means the build version.
	Version string
	Metrics *Metrics
}

// LoadOptions are the command-line switches affecting root loading.
type LoadOptions struct {
	EnableAllRules       bool
	IgnoreParentAndChild bool
	CachePath            string
}

func (o LoadOptions) key() string {
	return fmt.Sprintf("all=%t ignore=%t cache=%s", o.EnableAllRules, o.IgnoreParentAndChild, o.CachePath)
}

// Resolver owns the configuration caches. It is safe for concurrent use.
type Resolver struct {
	fs      afero.Fs
	workDir string
	cat     *rules.Catalog
	remote  *remote.Client
	sink    config.Sink
	logger  *slog.Logger
	version string

	roots *Cache[*config.Config]
	dirs  *Cache[*config.Config]

	// loadOpts remembers the options each root was loaded with, by fingerprint.
	loadOpts sync.Map
}

// New returns a resolver.
func New(opts Options) *Resolver {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Catalog == nil {
		opts.Catalog = rules.MustCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Sink == nil {
		opts.Sink = config.Discard
	}
	if opts.Remote == nil {
		opts.Remote = remote.NewClient(
			remote.NewHTTPFetcher(nil, "lintcascade"),
			remote.NewStore(opts.Fs, opts.WorkDir),
			opts.Logger,
		)
	}
	return &Resolver{
		fs:      opts.Fs,
		workDir: filepath.Clean(opts.WorkDir),
		cat:     opts.Catalog,
		remote:  opts.Remote,
		sink:    opts.Sink,
		logger:  opts.Logger,
		version: opts.Version,
		roots:   NewCache[*config.Config]("root", opts.Metrics),
		dirs:    NewCache[*config.Config]("directory", opts.Metrics),
	}
}

// Catalog returns the rule catalog the resolver was built with.
func (r *Resolver) Catalog() *rules.Catalog { return r.cat }

// RootStats returns the root cache counters.
func (r *Resolver) RootStats() Stats { return r.roots.Stats() }

// DirStats returns the per-directory cache counters.
func (r *Resolver) DirStats() Stats { return r.dirs.Stats() }

// LoadRootConfiguration resolves the configuration given on the command line.
// Locations are folded left to right onto an empty configuration anchored
// at the working directory. With no locations, a default-named file in the
// working directory is used when present; if it cannot be parsed a warning
// is emitted and the empty configuration is returned.
func (r *Resolver) LoadRootConfiguration(ctx context.Context, locations []string, opts LoadOptions) (*config.Config, error) {
	key := r.workDir + "\x00" + strings.Join(locations, "\x00") + "\x00" + opts.key()
	return r.roots.Get(key, func() (*config.Config, error) {
		r.logger.Debug("loading root configuration", "workdir", r.workDir, "locations", locations)
		root, err := r.loadRoot(ctx, locations, opts)
		if err != nil {
			return nil, fmt.Errorf("loading configuration: %w", err)
		}
		r.loadOpts.Store(root.Fingerprint(), opts)
		return root, nil
	})
}

func (r *Resolver) loadRoot(ctx context.Context, locations []string, opts LoadOptions) (*config.Config, error) {
	b := &graphBuilder{r: r, ignoreRefs: opts.IgnoreParentAndChild}
	out := config.Empty(r.workDir)

	if len(locations) == 0 {
		node, err := r.loadDefault(ctx, b)
		if err != nil {
			return nil, err
		}
		if node != nil {
			out = config.Merge(r.cat, out, node)
		}
	}
	for _, loc := range locations {
		node, err := b.build(ctx, localRef(loc, r.workDir), nil)
		if err != nil {
			return nil, err
		}
		out = config.Merge(r.cat, out, node)
	}

	return r.finish(out, opts), nil
}

// loadDefault loads the default-named file of the working directory, if any.
// An unreadable file counts as missing and a malformed one falls back with a
// warning; failures of the files it references are fatal.
func (r *Resolver) loadDefault(ctx context.Context, b *graphBuilder) (*config.Config, error) {
	path, ok := r.defaultFile(r.workDir)
	if !ok {
		return nil, nil
	}

	node, err := b.build(ctx, localRef(path, r.workDir), nil)
	switch {
	case err == nil:
		return node, nil
	case failedOn(err, path, config.ErrIO):
		r.logger.Debug("default configuration unreadable, ignoring", "path", path, "error", err)
		return nil, nil
	case failedOn(err, path, config.ErrParse):
		r.warn(config.WarnFallback, path, fmt.Sprintf("ignoring configuration: %v", err))
		return nil, nil
	}
	return nil, err
}

// failedOn reports whether err is a failure of kind raised by origin itself.
func failedOn(err error, origin string, kind error) bool {
	var cfgErr *config.Error
	return errors.As(err, &cfgErr) && cfgErr.Origin == origin && errors.Is(cfgErr, kind)
}

// finish applies the load options and drops unknown identifiers.
func (r *Resolver) finish(cfg *config.Config, opts LoadOptions) *config.Config {
	if opts.EnableAllRules || opts.CachePath != "" {
		c := *cfg
		if opts.EnableAllRules {
			c.Selection = rules.AllEnabledSelection()
		}
		if opts.CachePath != "" {
			c.CachePath = opts.CachePath
		}
		cfg = &c
	}
	return config.Validate(r.cat, cfg, r.sink)
}

// ResolveForFile returns the configuration that applies to path: root with
// every nested default-named file between root's directory and the file's
// directory merged on top, outermost first. Files outside root's directory
// get root unchanged.
func (r *Resolver) ResolveForFile(ctx context.Context, root *config.Config, path string) (*config.Config, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.workDir, path)
	}
	dir := filepath.Dir(filepath.Clean(path))

	if root.RootDir == "" || !within(root.RootDir, dir) {
		return root, nil
	}
	cfg, err := r.resolveDir(ctx, root, root.Fingerprint(), dir)
	if err != nil {
		return nil, fmt.Errorf("resolving configuration for %s: %w", path, err)
	}
	return cfg, nil
}

func (r *Resolver) resolveDir(ctx context.Context, root *config.Config, rootKey, dir string) (*config.Config, error) {
	if dir == root.RootDir {
		return root, nil
	}
	return r.dirs.Get(rootKey+"\x00"+dir, func() (*config.Config, error) {
		above, err := r.resolveDir(ctx, root, rootKey, filepath.Dir(dir))
		if err != nil {
			return nil, err
		}

		path, ok := r.defaultFile(dir)
		if !ok || above.HasOrigin(path) {
			return above, nil
		}

		r.logger.Debug("merging nested configuration", "path", path)
		opts := r.optionsFor(rootKey)
		b := &graphBuilder{r: r, ignoreRefs: opts.IgnoreParentAndChild}
		node, err := b.build(ctx, localRef(path, dir), nil)
		if failedOn(err, path, config.ErrIO) {
			r.logger.Debug("nested configuration unreadable, ignoring", "path", path, "error", err)
			return above, nil
		}
		if err != nil {
			return nil, err
		}
		return r.finish(config.Merge(r.cat, above, node), opts), nil
	})
}

func (r *Resolver) optionsFor(rootKey string) LoadOptions {
	if v, ok := r.loadOpts.Load(rootKey); ok {
		return v.(LoadOptions)
	}
	return LoadOptions{}
}

// defaultFile returns the default-named configuration file in dir.
// Directories carrying the name are not candidates.
func (r *Resolver) defaultFile(dir string) (string, bool) {
	for _, name := range []string{config.DefaultFileName, config.AltFileName} {
		path := filepath.Join(dir, name)
		if isDir, err := afero.IsDir(r.fs, path); err == nil && !isDir {
			return path, true
		}
	}
	return "", false
}

func (r *Resolver) parse(origin, rootDir string, data []byte) (*config.File, error) {
	tree, err := config.Decode(origin, data)
	if err != nil {
		return nil, config.ParseFailure(origin, err)
	}
	file, err := config.Parse(tree, config.ParseOptions{
		Catalog: r.cat,
		Origin:  origin,
		RootDir: rootDir,
		Sink:    r.sink,
		Version: r.version,
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (r *Resolver) warn(kind config.WarningKind, origin, msg string) {
	r.sink.Warn(config.Warning{Kind: kind, Origin: origin, Message: msg})
}

// within reports whether dir is root or below it.
func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
