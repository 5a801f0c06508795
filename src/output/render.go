package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/rules"
)

// Formats accepted by Render.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// Document is the serializable view of an effective configuration.
type Document struct {
	File      string   `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	RootDir   string   `json:"root_dir" yaml:"root_dir" toml:"root_dir"`
	Origins   []string `json:"origins,omitempty" yaml:"origins,omitempty" toml:"origins,omitempty"`
	Mode      string   `json:"mode" yaml:"mode" toml:"mode"`
	Disabled  []string `json:"disabled_rules,omitempty" yaml:"disabled_rules,omitempty" toml:"disabled_rules,omitempty"`
	OptIn     []string `json:"opt_in_rules,omitempty" yaml:"opt_in_rules,omitempty" toml:"opt_in_rules,omitempty"`
	Only      []string `json:"only_rules,omitempty" yaml:"only_rules,omitempty" toml:"only_rules,omitempty"`
	Rules     []Rule   `json:"rules" yaml:"rules" toml:"rules"`
	Included  []string `json:"included,omitempty" yaml:"included,omitempty" toml:"included,omitempty"`
	Excluded  []string `json:"excluded,omitempty" yaml:"excluded,omitempty" toml:"excluded,omitempty"`
	Threshold *int     `json:"warning_threshold,omitempty" yaml:"warning_threshold,omitempty" toml:"warning_threshold,omitempty"`
	Reporter  string   `json:"reporter" yaml:"reporter" toml:"reporter"`
	CachePath string   `json:"cache_path,omitempty" yaml:"cache_path,omitempty" toml:"cache_path,omitempty"`
	Indent    string   `json:"indentation" yaml:"indentation" toml:"indentation"`
	Strict    *bool    `json:"strict,omitempty" yaml:"strict,omitempty" toml:"strict,omitempty"`
	AllowZero *bool    `json:"allow_zero_lintable_files,omitempty" yaml:"allow_zero_lintable_files,omitempty" toml:"allow_zero_lintable_files,omitempty"`
}

// Rule is one active rule with its options.
type Rule struct {
	ID         string         `json:"id" yaml:"id" toml:"id"`
	Configured bool           `json:"configured" yaml:"configured" toml:"configured"`
	Options    map[string]any `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
}

// NewDocument builds the view of cfg. file may be empty.
func NewDocument(file string, cfg *config.Config, cat *rules.Catalog) Document {
	doc := Document{
		File:      file,
		RootDir:   cfg.RootDir,
		Origins:   cfg.Origins,
		Mode:      cfg.Selection.Mode.String(),
		Included:  cfg.Included,
		Excluded:  cfg.Excluded,
		Threshold: cfg.WarningThreshold,
		Reporter:  cfg.EffectiveReporter(),
		CachePath: cfg.CachePath,
		Indent:    cfg.EffectiveIndentation().String(),
		Strict:    cfg.Strict,
		AllowZero: cfg.AllowZeroLintableFiles,
		Rules:     []Rule{},
	}
	switch cfg.Selection.Mode {
	case rules.ModeDefault:
		doc.Disabled = cfg.Selection.Disabled.Sorted()
		doc.OptIn = cfg.Selection.OptIn.Sorted()
	case rules.ModeOnly:
		doc.Only = cfg.Selection.Only.Sorted()
	}

	for _, inst := range cfg.ResultingRules(cat) {
		rule := Rule{ID: inst.ID()}
		switch r := inst.(type) {
		case *rules.Regular:
			rule.Configured = r.Explicit
			rule.Options = optionsTree(r.Options)
		case *rules.CustomAggregate:
			rule.Configured = true
			tree := map[string]any{}
			for _, c := range r.Rules {
				tree[c.ID] = optionsTree(c)
			}
			rule.Options = tree
		}
		doc.Rules = append(doc.Rules, rule)
	}
	return doc
}

// optionsTree converts typed options into a plain tree using their JSON
// field names. Null values are dropped.
func optionsTree(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil
	}
	return dropNulls(tree)
}

func dropNulls(tree map[string]any) map[string]any {
	for k, v := range tree {
		switch x := v.(type) {
		case nil:
			delete(tree, k)
		case map[string]any:
			tree[k] = dropNulls(x)
		}
	}
	return tree
}

// Render writes docs in the given structured format. A single document is
// written as an object, several as a list (TOML wraps them in "configs").
func Render(w io.Writer, format string, docs ...Document) error {
	var payload any = docs
	if len(docs) == 1 {
		payload = docs[0]
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case FormatTOML:
		if len(docs) != 1 {
			payload = map[string]any{"configs": docs}
		}
		return toml.NewEncoder(w).Encode(payload)
	default:
		return fmt.Errorf("unsupported format %q (supported: text, yaml, json, toml)", format)
	}
}
