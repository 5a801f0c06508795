package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/rules"
	"github.com/sofmeright/lintcascade/src/rules/builtin"
)

func parseFile(t *testing.T, text, origin, rootDir string) (*config.File, *config.Collector) {
	t.Helper()
	tree, err := config.Decode(origin, []byte(text))
	require.NoError(t, err)
	sink := config.NewCollector(nil)
	f, err := config.Parse(tree, config.ParseOptions{
		Catalog: builtin.Catalog(),
		Origin:  origin,
		RootDir: rootDir,
		Sink:    sink,
		Version: "1.5.0",
	})
	require.NoError(t, err)
	return f, sink
}

func parseConfig(t *testing.T, text, origin, rootDir string) *config.Config {
	t.Helper()
	f, _ := parseFile(t, text, origin, rootDir)
	return f.Config
}

func parseErr(t *testing.T, text string) error {
	t.Helper()
	tree, err := config.Decode("test.yml", []byte(text))
	require.NoError(t, err)
	_, err = config.Parse(tree, config.ParseOptions{
		Catalog: builtin.Catalog(),
		Origin:  "/repo/test.yml",
		Version: "1.5.0",
	})
	return err
}

func TestParse_Settings(t *testing.T) {
	f, sink := parseFile(t, `
disabled_rules: [todo, variable_name]
opt_in_rules:
  - force_cast
included: [src]
excluded: src/generated
warning_threshold: 5
reporter: json
cache_path: /tmp/cache
indentation: tabs
strict: true
allow_zero_lintable_files: false
parent_config: ../base.yml
child_config: [one.yml, two.yml]
remote_timeout: 3
required_version: ">= 1.2"
line_length: 100
`, "/repo/.lintcascade.yml", "/repo")

	cfg := f.Config
	assert.Equal(t, rules.ModeDefault, cfg.Selection.Mode)
	assert.Equal(t, []string{"identifier_name", "todo"}, cfg.Selection.Disabled.Sorted())
	assert.Equal(t, []string{"force_cast"}, cfg.Selection.OptIn.Sorted())
	assert.Equal(t, []string{"src"}, cfg.Included)
	assert.Equal(t, []string{"src/generated"}, cfg.Excluded)
	require.NotNil(t, cfg.WarningThreshold)
	assert.Equal(t, 5, *cfg.WarningThreshold)
	assert.Equal(t, "json", cfg.Reporter)
	assert.Equal(t, "/tmp/cache", cfg.CachePath)
	assert.Equal(t, config.TabIndentation(), cfg.Indentation)
	require.NotNil(t, cfg.Strict)
	assert.True(t, *cfg.Strict)
	require.NotNil(t, cfg.AllowZeroLintableFiles)
	assert.False(t, *cfg.AllowZeroLintableFiles)
	assert.Equal(t, []string{"/repo/.lintcascade.yml"}, cfg.Origins)

	assert.Equal(t, "../base.yml", f.Parent)
	assert.Equal(t, []string{"one.yml", "two.yml"}, f.Children)
	assert.Equal(t, []string{"../base.yml", "one.yml", "two.yml"}, f.References())
	assert.Equal(t, 3*time.Second, f.RemoteTimeout)
	assert.Equal(t, config.DefaultRemoteTimeoutIfCached, f.RemoteTimeoutIfCached)

	inst, ok := cfg.Instances["line_length"].(*rules.Regular)
	require.True(t, ok)
	assert.True(t, inst.Explicit)
	assert.Equal(t, 100, inst.Options.(builtin.LineLengthOptions).Warning)

	assert.Empty(t, sink.Warnings())
}

func TestParse_EmptyDocument(t *testing.T) {
	f, sink := parseFile(t, "", "/repo/.lintcascade.yml", "/repo")
	assert.True(t, f.Config.Selection.Equal(rules.DefaultSelection(nil, nil)))
	assert.Empty(t, f.Config.Instances)
	assert.Empty(t, sink.Warnings())
}

func TestParse_TOML(t *testing.T) {
	cfg := parseConfig(t, `
only_rules = ["todo", "line_length"]
warning_threshold = 3

[line_length]
warning = 90
error = 150
`, "/repo/.lintcascade.toml", "/repo")

	assert.Equal(t, rules.ModeOnly, cfg.Selection.Mode)
	assert.Equal(t, []string{"line_length", "todo"}, cfg.Selection.Only.Sorted())
	assert.Equal(t, 3, *cfg.WarningThreshold)
	opts := cfg.Instances["line_length"].(*rules.Regular).Options.(builtin.LineLengthOptions)
	assert.Equal(t, 90, opts.Warning)
	assert.Equal(t, 150, opts.Error)
}

func TestParse_AllOptIn(t *testing.T) {
	cfg := parseConfig(t, "opt_in_rules: [all]", "/repo/a.yml", "/repo")
	assert.Equal(t, rules.ModeAllEnabled, cfg.Selection.Mode)

	cfg = parseConfig(t, "opt_in_rules: [all]\ndisabled_rules: [force_cast, todo]", "/repo/a.yml", "/repo")
	assert.Equal(t, rules.ModeDefault, cfg.Selection.Mode)
	assert.False(t, cfg.Selection.OptIn.Has("force_cast"))
	assert.True(t, cfg.Selection.OptIn.Has("sorted_imports"))
	assert.True(t, cfg.Selection.Disabled.Has("todo"))
}

func TestParse_Warnings(t *testing.T) {
	f, sink := parseFile(t, `
disabled_rules: [todo, todo, no_such_rule]
whitelist_rules_typo: true
tabs: {severity: error}
line_length:
  warning: -1
`, "/repo/.lintcascade.yml", "/repo")

	assert.Equal(t, 1, sink.Count(config.WarnDuplicateRule))
	assert.Equal(t, 1, sink.Count(config.WarnUnknownKey))
	assert.Equal(t, 1, sink.Count(config.WarnDeprecatedKey))
	assert.Equal(t, 1, sink.Count(config.WarnRuleConfig))

	// Unknown identifiers survive parsing; they are checked after folding.
	assert.True(t, f.Config.Selection.Disabled.Has("no_such_rule"))

	ll, ok := f.Config.Instances["line_length"].(*rules.Regular)
	require.True(t, ok)
	assert.False(t, ll.Explicit, "invalid options fall back to defaults")
	assert.Equal(t, 120, ll.Options.(builtin.LineLengthOptions).Warning)

	_, ok = f.Config.Instances["leading_tabs"]
	assert.True(t, ok, "aliases are stored under the canonical identifier")
}

func TestParse_Whitelist(t *testing.T) {
	f, sink := parseFile(t, "whitelist_rules: [todo]", "/repo/a.yml", "/repo")
	assert.Equal(t, rules.ModeOnly, f.Config.Selection.Mode)
	assert.Equal(t, []string{"todo"}, f.Config.Selection.Only.Sorted())
	assert.Equal(t, 1, sink.Count(config.WarnDeprecatedKey))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind error
	}{
		{"only with disabled", "only_rules: [todo]\ndisabled_rules: [line_length]", config.ErrConflictingSelection},
		{"only with opt-in", "only_rules: [todo]\nopt_in_rules: [force_cast]", config.ErrConflictingSelection},
		{"only with whitelist", "only_rules: [todo]\nwhitelist_rules: [todo]", config.ErrConflictingSelection},
		{"rule and alias", "identifier_name: {}\nvariable_name: {}", config.ErrDuplicateRuleConfig},
		{"bad list", "disabled_rules: 3", config.ErrParse},
		{"bad threshold", "warning_threshold: many", config.ErrParse},
		{"bad indentation", "indentation: sideways", config.ErrParse},
		{"bad timeout", "remote_timeout: -1", config.ErrParse},
		{"version too old", `required_version: ">= 2.0"`, config.ErrVersion},
		{"bad constraint", `required_version: "nope nope"`, config.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErr(t, tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var cfgErr *config.Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "/repo/test.yml", cfgErr.Origin)
		})
	}
}

func TestDecode_NotAMapping(t *testing.T) {
	_, err := config.Decode("x.yml", []byte("- a\n- b\n"))
	assert.Error(t, err)

	_, err = config.Decode("x.yml", []byte("key: [unterminated"))
	assert.Error(t, err)

	tree, err := config.Decode("x.yml", []byte("# only a comment\n"))
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestCycleError(t *testing.T) {
	err := &config.CycleError{Chain: []string{"/a.yml", "/b.yml", "/a.yml"}}
	assert.ErrorIs(t, err, config.ErrCycle)
	assert.Contains(t, err.Error(), "/a.yml => /b.yml => /a.yml")
}
