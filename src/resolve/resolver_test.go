package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/remote"
	"github.com/sofmeright/lintcascade/src/rules"
	"github.com/sofmeright/lintcascade/src/rules/builtin"
)

type fixture struct {
	fs   afero.Fs
	sink *config.Collector
	r    *Resolver
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	sink := config.NewCollector(nil)
	r := New(Options{
		Fs:      fs,
		WorkDir: "/repo",
		Catalog: builtin.Catalog(),
		Sink:    sink,
		Version: "1.0.0",
	})
	return &fixture{fs: fs, sink: sink, r: r}
}

func (f *fixture) load(t *testing.T, locations ...string) *config.Config {
	t.Helper()
	root, err := f.r.LoadRootConfiguration(context.Background(), locations, LoadOptions{})
	require.NoError(t, err)
	return root
}

func lineLengthWarning(t *testing.T, cfg *config.Config) int {
	t.Helper()
	inst, ok := cfg.Instances["line_length"].(*rules.Regular)
	require.True(t, ok)
	return inst.Options.(builtin.LineLengthOptions).Warning
}

func TestLoadRoot_NoConfiguration(t *testing.T) {
	f := newFixture(t, nil)
	root := f.load(t)
	assert.Equal(t, "/repo", root.RootDir)
	assert.Empty(t, root.Origins)
	assert.NotContains(t, root.ResultingRuleIDs(f.r.Catalog()), "force_cast")
	assert.Contains(t, root.ResultingRuleIDs(f.r.Catalog()), "todo")
}

func TestLoadRoot_DefaultFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml": "disabled_rules: [todo]\nline_length: 90",
	})
	root := f.load(t)
	assert.Equal(t, []string{"/repo/.lintcascade.yml"}, root.Origins)
	assert.NotContains(t, root.ResultingRuleIDs(f.r.Catalog()), "todo")
	assert.Equal(t, 90, lineLengthWarning(t, root))
}

func TestLoadRoot_MalformedDefaultFileFallsBack(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml": "disabled_rules: [todo\n",
	})
	root := f.load(t)
	assert.Empty(t, root.Origins)
	assert.Equal(t, 1, f.sink.Count(config.WarnFallback))
}

func TestLoadRoot_DefaultNameDirectoryIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.fs.MkdirAll("/repo/.lintcascade.yml", 0o755))
	require.NoError(t, f.fs.MkdirAll("/repo/sub/.lintcascade.yml", 0o755))

	root := f.load(t)
	assert.Empty(t, root.Origins)

	cfg, err := f.r.ResolveForFile(context.Background(), root, "/repo/sub/deeper/a.swift")
	require.NoError(t, err)
	assert.Same(t, root, cfg)
}

func TestLoadRoot_DefaultNameDirectoryFallsThroughToTOML(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.toml": "disabled_rules = [\"todo\"]",
	})
	require.NoError(t, f.fs.MkdirAll("/repo/.lintcascade.yml", 0o755))

	root := f.load(t)
	assert.Equal(t, []string{"/repo/.lintcascade.toml"}, root.Origins)
}

// unreadableFs fails to open files with the given base name.
type unreadableFs struct {
	afero.Fs
	name string
}

func (f unreadableFs) Open(name string) (afero.File, error) {
	if filepath.Base(name) == f.name {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

func TestLoadRoot_UnreadableDefaultFileCountsAsMissing(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/repo/.lintcascade.yml", []byte("disabled_rules: [todo]"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/repo/sub/.lintcascade.yml", []byte("disabled_rules: [todo]"), 0o644))
	sink := config.NewCollector(nil)
	r := New(Options{
		Fs:      unreadableFs{Fs: mem, name: config.DefaultFileName},
		WorkDir: "/repo",
		Catalog: builtin.Catalog(),
		Sink:    sink,
		Version: "1.0.0",
	})

	root, err := r.LoadRootConfiguration(context.Background(), nil, LoadOptions{})
	require.NoError(t, err)
	assert.Empty(t, root.Origins)
	assert.Contains(t, root.ResultingRuleIDs(r.Catalog()), "todo")

	cfg, err := r.ResolveForFile(context.Background(), root, "/repo/sub/a.swift")
	require.NoError(t, err)
	assert.Same(t, root, cfg)
	assert.Empty(t, sink.Warnings())

	_, err = r.LoadRootConfiguration(context.Background(), []string{".lintcascade.yml"}, LoadOptions{})
	assert.ErrorIs(t, err, config.ErrIO, "explicit locations stay fatal")
}

func TestLoadRoot_ExplicitFailures(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/bad.yml":    "- not\n- a mapping\n",
		"/repo/parent.yml": "parent_config: missing.yml",
	})
	ctx := context.Background()

	_, err := f.r.LoadRootConfiguration(ctx, []string{"bad.yml"}, LoadOptions{})
	assert.ErrorIs(t, err, config.ErrParse)

	_, err = f.r.LoadRootConfiguration(ctx, []string{"nope.yml"}, LoadOptions{})
	assert.ErrorIs(t, err, config.ErrIO)

	_, err = f.r.LoadRootConfiguration(ctx, []string{"parent.yml"}, LoadOptions{})
	require.ErrorIs(t, err, config.ErrIO)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "/repo/missing.yml", cfgErr.Origin)
}

func TestLoadRoot_ParentAndChildren(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/main.yml":   "line_length: 100\ndisabled_rules: [todo]\nincluded: [src, lib]\nexcluded: [src/gen]\nchild_config: [child1.yml, child2.yml]\nparent_config: base.yml",
		"/repo/base.yml":   "warning_threshold: 10\nreporter: json",
		"/repo/child1.yml": "opt_in_rules: [force_cast]\nwarning_threshold: 8\nexcluded: [lib/vendor]",
		"/repo/child2.yml": "line_length: 80\nwarning_threshold: 12\nincluded: [tools]\nexcluded: [lib]",
	})
	cat := f.r.Catalog()
	root := f.load(t, "main.yml")

	lineLengthRule, ok := cat.Lookup("line_length")
	require.True(t, ok)
	want := &config.Config{
		Selection: rules.DefaultSelection(rules.NewIDSet("todo"), rules.NewIDSet("force_cast")),
		Instances: map[string]rules.Instance{
			"line_length": &rules.Regular{
				Rule:     lineLengthRule,
				Options:  builtin.LineLengthOptions{Thresholds: builtin.Thresholds{Warning: 80, Error: 200}},
				Explicit: true,
			},
		},
		Included:         []string{"src", "tools"},
		Excluded:         []string{"src/gen", "lib/vendor", "lib"},
		WarningThreshold: intPtr(8),
		Reporter:         "json",
		RootDir:          "/repo",
		Origins:          []string{"/repo/base.yml", "/repo/child1.yml", "/repo/child2.yml", "/repo/main.yml"},
	}
	assert.True(t, want.Equal(root), "got %+v", root)
	assert.Equal(t, want.Included, root.Included)
	assert.Equal(t, want.Excluded, root.Excluded)
	assert.Equal(t, want.ResultingRuleIDs(cat), root.ResultingRuleIDs(cat))

	// Folding main with each child left to right gives the same result as
	// resolving the references.
	g := newFixture(t, map[string]string{
		"/repo/main.yml":   "line_length: 100\ndisabled_rules: [todo]\nincluded: [src, lib]\nexcluded: [src/gen]\nparent_config: base.yml",
		"/repo/base.yml":   "warning_threshold: 10\nreporter: json",
		"/repo/child1.yml": "opt_in_rules: [force_cast]\nwarning_threshold: 8\nexcluded: [lib/vendor]",
		"/repo/child2.yml": "line_length: 80\nwarning_threshold: 12\nincluded: [tools]\nexcluded: [lib]",
	})
	chained := g.load(t, "main.yml", "child1.yml", "child2.yml")
	assert.True(t, want.Equal(chained), "got %+v", chained)
	assert.True(t, root.Equal(chained))
}

func TestLoadRoot_Cycle(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/a.yml": "parent_config: b.yml",
		"/repo/b.yml": "child_config: a.yml",
	})
	_, err := f.r.LoadRootConfiguration(context.Background(), []string{"a.yml"}, LoadOptions{})
	require.ErrorIs(t, err, config.ErrCycle)

	var cycle *config.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"/repo/a.yml", "/repo/b.yml", "/repo/a.yml"}, cycle.Chain)
	assert.Contains(t, err.Error(), "/repo/a.yml => /repo/b.yml => /repo/a.yml")
}

func TestLoadRoot_SelfReference(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/a.yml": "child_config: ./a.yml",
	})
	_, err := f.r.LoadRootConfiguration(context.Background(), []string{"a.yml"}, LoadOptions{})
	assert.ErrorIs(t, err, config.ErrCycle)
}

func TestLoadRoot_Options(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/main.yml":             "disabled_rules: [todo]\nparent_config: base.yml",
		"/repo/base.yml":             "line_length: 50",
		"/repo/sub/x.go":             "",
		"/repo/sub/.lintcascade.yml": "disabled_rules: [line_length]",
	})
	ctx := context.Background()
	cat := f.r.Catalog()

	ignored, err := f.r.LoadRootConfiguration(ctx, []string{"main.yml"}, LoadOptions{IgnoreParentAndChild: true, CachePath: "/tmp/c"})
	require.NoError(t, err)
	_, configured := ignored.Instances["line_length"]
	assert.False(t, configured, "parent is not loaded")
	assert.Equal(t, "/tmp/c", ignored.CachePath)

	all, err := f.r.LoadRootConfiguration(ctx, []string{"main.yml"}, LoadOptions{EnableAllRules: true})
	require.NoError(t, err)
	assert.Equal(t, rules.ModeAllEnabled, all.Selection.Mode)
	assert.Equal(t, cat.IDs(), all.ResultingRuleIDs(cat))

	nested, err := f.r.ResolveForFile(ctx, all, "/repo/sub/x.go")
	require.NoError(t, err)
	assert.Equal(t, rules.ModeAllEnabled, nested.Selection.Mode, "enable-all-rules applies to nested configurations")
}

func TestLoadRoot_UnknownIdentifiers(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml": "disabled_rules: [todo, not_a_rule]",
	})
	root := f.load(t)
	assert.Equal(t, []string{"todo"}, root.Selection.Disabled.Sorted())
	assert.Equal(t, 1, f.sink.Count(config.WarnUnknownRule))
}

func TestLoadRoot_UnknownOptInIdentifier(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml": "opt_in_rules: [force_cast, not_a_rule]",
	})
	root := f.load(t)
	assert.Equal(t, []string{"force_cast"}, root.Selection.OptIn.Sorted())
	assert.Contains(t, root.ResultingRuleIDs(f.r.Catalog()), "force_cast")
	require.Equal(t, 1, f.sink.Count(config.WarnUnknownRule))
	assert.Contains(t, f.sink.Warnings()[0].Message, "not_a_rule")
}

func TestLoadRoot_CachedPerKey(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml": "line_length: 90",
	})
	a := f.load(t)
	b := f.load(t)
	assert.Same(t, a, b)
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Entries: 1}, f.r.RootStats())
}

func TestLoadRoot_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/base.yml":
			w.Write([]byte("line_length: 70\nparent_config: other.yml\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/.lintcascade.yml", []byte("parent_config: "+srv.URL+"/base.yml\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/broken.yml", []byte("parent_config: "+srv.URL+"/missing.yml\n"), 0o644))

	sink := config.NewCollector(nil)
	client := remote.NewClient(remote.NewHTTPFetcher(srv.Client(), ""), remote.NewStore(fs, "/repo"), nil)
	r := New(Options{Fs: fs, WorkDir: "/repo", Catalog: builtin.Catalog(), Sink: sink, Remote: client})

	root, err := r.LoadRootConfiguration(context.Background(), nil, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 70, lineLengthWarning(t, root))
	assert.Contains(t, root.Origins, srv.URL+"/base.yml")
	assert.Equal(t, 1, sink.Count(config.WarnRemote), "references inside remote files are ignored")

	_, err = r.LoadRootConfiguration(context.Background(), []string{"broken.yml"}, LoadOptions{})
	assert.ErrorIs(t, err, config.ErrFetch)
}

func TestResolveForFile_Nested(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml":       "disabled_rules: [todo]\nline_length: 120\nexcluded: [vendor]",
		"/repo/a/.lintcascade.yml":     "line_length: 100\nwarning_threshold: 5",
		"/repo/a/b/.lintcascade.yml":   "opt_in_rules: [force_cast]\nwarning_threshold: 9",
		"/repo/a/b/c/deep.go":          "",
		"/repo/other/plain.go":         "",
		"/repo/a/b/.lintcascade.extra": "ignored",
	})
	ctx := context.Background()
	cat := f.r.Catalog()
	root := f.load(t)

	cfg, err := f.r.ResolveForFile(ctx, root, "/repo/a/b/c/deep.go")
	require.NoError(t, err)
	assert.Equal(t, 100, lineLengthWarning(t, cfg))
	assert.Equal(t, 5, *cfg.WarningThreshold)
	ids := cfg.ResultingRuleIDs(cat)
	assert.Contains(t, ids, "force_cast")
	assert.NotContains(t, ids, "todo")
	assert.Equal(t, []string{"/repo/.lintcascade.yml", "/repo/a/.lintcascade.yml", "/repo/a/b/.lintcascade.yml"}, cfg.Origins)
	assert.Equal(t, "/repo/a/b", cfg.RootDir)
	assert.Empty(t, cfg.Excluded, "a nested file anchors its own path filters")

	plain, err := f.r.ResolveForFile(ctx, root, "other/plain.go")
	require.NoError(t, err)
	assert.Same(t, root, plain)

	top, err := f.r.ResolveForFile(ctx, root, "/repo/top.go")
	require.NoError(t, err)
	assert.Same(t, root, top)

	outside, err := f.r.ResolveForFile(ctx, root, "/elsewhere/x.go")
	require.NoError(t, err)
	assert.Same(t, root, outside)
}

func TestResolveForFile_Idempotent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml":   "line_length: 120",
		"/repo/a/.lintcascade.yml": "line_length: 100",
	})
	ctx := context.Background()
	root := f.load(t)

	first, err := f.r.ResolveForFile(ctx, root, "/repo/a/x.go")
	require.NoError(t, err)
	before := f.r.DirStats()

	second, err := f.r.ResolveForFile(ctx, root, "/repo/a/y.go")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.True(t, first.Equal(second))

	after := f.r.DirStats()
	assert.Equal(t, before.Hits+1, after.Hits)
	assert.Equal(t, before.Misses, after.Misses)
}

func TestResolveForFile_AlreadyFolded(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml":   "child_config: a/.lintcascade.yml",
		"/repo/a/.lintcascade.yml": "warning_threshold: 3",
	})
	ctx := context.Background()
	root := f.load(t)
	require.True(t, root.HasOrigin("/repo/a/.lintcascade.yml"))

	cfg, err := f.r.ResolveForFile(ctx, root, "/repo/a/x.go")
	require.NoError(t, err)
	assert.Same(t, root, cfg)
}

func TestResolveForFile_InvalidNestedIsFatal(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/a/.lintcascade.yml": "only_rules: [todo]\ndisabled_rules: [todo]",
	})
	root := f.load(t)
	_, err := f.r.ResolveForFile(context.Background(), root, "/repo/a/x.go")
	assert.ErrorIs(t, err, config.ErrConflictingSelection)
}

func TestResolveForFile_Concurrent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml":   "line_length: 120",
		"/repo/a/.lintcascade.yml": "line_length: 100",
		"/repo/b/.lintcascade.yml": "line_length: 90",
	})
	ctx := context.Background()
	root := f.load(t)

	var wg sync.WaitGroup
	results := make([]*config.Config, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := "a"
			if i%2 == 1 {
				dir = "b"
			}
			cfg, err := f.r.ResolveForFile(ctx, root, "/repo/"+dir+"/f.go")
			assert.NoError(t, err)
			results[i] = cfg
		}(i)
	}
	wg.Wait()

	for i, cfg := range results {
		want := 100
		if i%2 == 1 {
			want = 90
		}
		assert.Equal(t, want, lineLengthWarning(t, cfg))
	}
	stats := f.r.DirStats()
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(38), stats.Hits)
}

func TestResolveForFile_UnknownOptInIdentifierInNestedFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/repo/.lintcascade.yml":     "opt_in_rules: [force_cast]",
		"/repo/sub/.lintcascade.yml": "opt_in_rules: [empty_count, nope]",
	})
	root := f.load(t)
	cfg, err := f.r.ResolveForFile(context.Background(), root, "/repo/sub/a.swift")
	require.NoError(t, err)
	assert.Equal(t, []string{"empty_count", "force_cast"}, cfg.Selection.OptIn.Sorted())
	assert.Equal(t, 1, f.sink.Count(config.WarnUnknownRule))
}

func intPtr(n int) *int { return &n }
