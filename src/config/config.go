// Package config models one configuration unit: its rule selection, rule
// instances, path filters and scalar settings. It parses key/value trees into
// configurations and merges a parent with a child.
//
// A *Config is immutable once built. Merge and the other helpers return new
// values and never modify their inputs.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/sofmeright/lintcascade/src/rules"
)

// DefaultFileName is the per-directory configuration file name.
const DefaultFileName = ".lintcascade.yml"

// AltFileName is the TOML spelling of the per-directory configuration file.
const AltFileName = ".lintcascade.toml"

// DefaultReporter is used when no configuration names a reporter.
const DefaultReporter = "xcode"

// Indentation is the indentation style. The zero value means "not declared".
type Indentation struct {
	Tabs   bool
	Spaces int
}

// TabIndentation returns tab indentation.
func TabIndentation() Indentation { return Indentation{Tabs: true} }

// SpaceIndentation returns an indentation of n spaces.
func SpaceIndentation(n int) Indentation { return Indentation{Spaces: n} }

// IsSet reports whether the indentation was declared.
func (i Indentation) IsSet() bool { return i.Tabs || i.Spaces > 0 }

func (i Indentation) String() string {
	switch {
	case i.Tabs:
		return "tabs"
	case i.Spaces > 0:
		return strconv.Itoa(i.Spaces) + " spaces"
	default:
		return "unset"
	}
}

// Config is a single configuration node, parsed or merged.
type Config struct {
	Selection rules.Selection
	// Instances holds explicitly configured rules keyed by canonical ID.
	Instances map[string]rules.Instance

	Included []string
	Excluded []string

	WarningThreshold       *int
	Reporter               string
	CachePath              string
	Indentation            Indentation
	Strict                 *bool
	AllowZeroLintableFiles *bool

	// Origin is the identity (absolute path or URL) the node was read from;
	// empty for the synthetic root.
	Origin string
	// RootDir is the directory path filters are relative to.
	RootDir string
	// Origins is the sorted set of origin identities folded into this node.
	Origins []string
}

// Empty returns the synthetic root configuration for a working directory.
func Empty(rootDir string) *Config {
	return &Config{
		Selection: rules.DefaultSelection(nil, nil),
		Instances: map[string]rules.Instance{},
		RootDir:   rootDir,
	}
}

// ResultingRules returns the active rules sorted by identifier.
func (c *Config) ResultingRules(cat *rules.Catalog) []rules.Instance {
	return c.Selection.Apply(cat, c.Instances)
}

// ResultingRuleIDs returns the identifiers of ResultingRules.
func (c *Config) ResultingRuleIDs(cat *rules.Catalog) []string {
	active := c.ResultingRules(cat)
	ids := make([]string, len(active))
	for i, inst := range active {
		ids[i] = inst.ID()
	}
	return ids
}

// EffectiveReporter returns the reporter, falling back to DefaultReporter.
func (c *Config) EffectiveReporter() string {
	if c.Reporter == "" {
		return DefaultReporter
	}
	return c.Reporter
}

// EffectiveIndentation returns the indentation, defaulting to four spaces.
func (c *Config) EffectiveIndentation() Indentation {
	if !c.Indentation.IsSet() {
		return SpaceIndentation(4)
	}
	return c.Indentation
}

// HasOrigin reports whether the identity was folded into this node.
func (c *Config) HasOrigin(origin string) bool {
	i := sort.SearchStrings(c.Origins, origin)
	return i < len(c.Origins) && c.Origins[i] == origin
}

// Fingerprint returns a stable digest of the node's content, used as a cache
// key for values derived from it.
func (c *Config) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "root=%s\norigin=%s\norigins=%q\n", c.RootDir, c.Origin, c.Origins)
	fmt.Fprintf(h, "mode=%s\ndisabled=%q\noptin=%q\nonly=%q\n",
		c.Selection.Mode, c.Selection.Disabled.Sorted(), c.Selection.OptIn.Sorted(), c.Selection.Only.Sorted())

	ids := make([]string, 0, len(c.Instances))
	for id := range c.Instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		switch inst := c.Instances[id].(type) {
		case *rules.Regular:
			fmt.Fprintf(h, "rule=%s explicit=%t %#v\n", id, inst.Explicit, inst.Options)
		case *rules.CustomAggregate:
			fmt.Fprintf(h, "custom=%#v\n", inst.Rules)
		}
	}

	fmt.Fprintf(h, "included=%q\nexcluded=%q\n", c.Included, c.Excluded)
	fmt.Fprintf(h, "threshold=%s reporter=%s cache=%s indent=%s strict=%s zero=%s\n",
		optInt(c.WarningThreshold), c.Reporter, c.CachePath, c.Indentation, optBool(c.Strict), optBool(c.AllowZeroLintableFiles))
	return hex.EncodeToString(h.Sum(nil))
}

// Equal reports value equality of two configurations.
func (c *Config) Equal(o *Config) bool {
	if c == nil || o == nil {
		return c == o
	}
	if !c.Selection.Equal(o.Selection) || len(c.Instances) != len(o.Instances) {
		return false
	}
	for id, inst := range c.Instances {
		if !rules.Equal(inst, o.Instances[id]) {
			return false
		}
	}
	return equalStrings(c.Included, o.Included) &&
		equalStrings(c.Excluded, o.Excluded) &&
		optInt(c.WarningThreshold) == optInt(o.WarningThreshold) &&
		c.Reporter == o.Reporter &&
		c.CachePath == o.CachePath &&
		c.Indentation == o.Indentation &&
		optBool(c.Strict) == optBool(o.Strict) &&
		optBool(c.AllowZeroLintableFiles) == optBool(o.AllowZeroLintableFiles) &&
		c.RootDir == o.RootDir &&
		equalStrings(c.Origins, o.Origins)
}

func optInt(p *int) string {
	if p == nil {
		return "none"
	}
	return strconv.Itoa(*p)
}

func optBool(p *bool) string {
	if p == nil {
		return "none"
	}
	return strconv.FormatBool(*p)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
