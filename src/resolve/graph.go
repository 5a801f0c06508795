package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/remote"
)

// graphBuilder reads configuration files and folds each one with the files
// it references. One builder serves one load.
type graphBuilder struct {
	r          *Resolver
	ignoreRefs bool
}

// ref is a reference to resolve, with the timeouts its referrer declared.
type ref struct {
	target          string
	baseDir         string
	timeout         time.Duration
	timeoutIfCached time.Duration
}

func localRef(target, baseDir string) ref {
	return ref{
		target:          target,
		baseDir:         baseDir,
		timeout:         config.DefaultRemoteTimeout,
		timeoutIfCached: config.DefaultRemoteTimeoutIfCached,
	}
}

// identity returns the absolute identity of a reference.
func (rf ref) identity() string {
	if remote.IsURL(rf.target) {
		return rf.target
	}
	if filepath.IsAbs(rf.target) {
		return filepath.Clean(rf.target)
	}
	return filepath.Join(rf.baseDir, rf.target)
}

// build resolves rf and everything it references. chain holds the
// identities currently being resolved, outermost first.
func (b *graphBuilder) build(ctx context.Context, rf ref, chain []string) (*config.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := rf.identity()
	if slices.Contains(chain, id) {
		return nil, &config.CycleError{Chain: append(slices.Clone(chain), id)}
	}

	file, err := b.read(ctx, rf, id)
	if err != nil {
		return nil, err
	}

	refs := file.References()
	if len(refs) == 0 || b.ignoreRefs {
		return file.Config, nil
	}
	if remote.IsURL(id) {
		b.r.warn(config.WarnRemote, id, "references in remote configurations are ignored")
		return file.Config, nil
	}

	next := append(slices.Clone(chain), id)
	dir := filepath.Dir(id)
	deref := func(target string) (*config.Config, error) {
		return b.build(ctx, ref{
			target:          target,
			baseDir:         dir,
			timeout:         file.RemoteTimeout,
			timeoutIfCached: file.RemoteTimeoutIfCached,
		}, next)
	}

	out := file.Config
	if file.Parent != "" {
		parent, err := deref(file.Parent)
		if err != nil {
			return nil, err
		}
		out = config.Merge(b.r.cat, parent, out)
	}
	for _, target := range file.Children {
		child, err := deref(target)
		if err != nil {
			return nil, err
		}
		out = config.Merge(b.r.cat, out, child)
	}
	return out, nil
}

// read loads and parses a single file. Every failure is fatal.
func (b *graphBuilder) read(ctx context.Context, rf ref, id string) (*config.File, error) {
	var (
		data    []byte
		rootDir string
	)
	if remote.IsURL(id) {
		res, err := b.r.remote.Load(ctx, id, rf.timeout, rf.timeoutIfCached)
		if err != nil {
			return nil, &config.Error{Kind: config.ErrFetch, Origin: id, Cause: err}
		}
		if res.Stale {
			b.r.warn(config.WarnRemote, id, fmt.Sprintf("using stored copy: %v", res.FetchErr))
		}
		data, rootDir = res.Data, rf.baseDir
	} else {
		d, err := afero.ReadFile(b.r.fs, id)
		if err != nil {
			return nil, &config.Error{Kind: config.ErrIO, Origin: id, Cause: err}
		}
		data, rootDir = d, filepath.Dir(id)
	}
	return b.r.parse(id, rootDir, data)
}
