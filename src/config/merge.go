package config

import "github.com/sofmeright/lintcascade/src/rules"

// Merge overlays child on parent and returns a new configuration. The child
// takes precedence except where a setting merges both sides.
func Merge(cat *rules.Catalog, parent, child *Config) *Config {
	if parent == nil {
		return child
	}
	if child == nil {
		return parent
	}

	out := &Config{
		Selection:              rules.MergeSelection(cat, parent.Selection, child.Selection),
		Reporter:               firstNonEmpty(parent.Reporter, child.Reporter),
		CachePath:              firstNonEmpty(parent.CachePath, child.CachePath),
		Indentation:            parent.Indentation,
		Strict:                 parent.Strict,
		AllowZeroLintableFiles: parent.AllowZeroLintableFiles,
		WarningThreshold:       minThreshold(parent.WarningThreshold, child.WarningThreshold),
		Origin:                 child.Origin,
		RootDir:                child.RootDir,
		Origins:                unionSorted(parent.Origins, child.Origins),
	}
	if child.Indentation.IsSet() {
		out.Indentation = child.Indentation
	}
	if child.Strict != nil {
		out.Strict = child.Strict
	}
	if child.AllowZeroLintableFiles != nil {
		out.AllowZeroLintableFiles = child.AllowZeroLintableFiles
	}
	if out.Origin == "" {
		out.Origin = parent.Origin
	}
	if out.RootDir == "" {
		out.RootDir = parent.RootDir
	}

	out.Instances = mergeInstances(parent.Instances, child.Instances, out.Selection)
	out.Included, out.Excluded = mergePaths(parent, child)
	return out
}

func mergeInstances(parent, child map[string]rules.Instance, sel rules.Selection) map[string]rules.Instance {
	out := make(map[string]rules.Instance, len(parent)+len(child))
	for id, inst := range parent {
		out[id] = inst
	}
	for id, inst := range child {
		switch c := inst.(type) {
		case *rules.CustomAggregate:
			p, _ := out[id].(*rules.CustomAggregate)
			out[id] = p.Merge(c)
		case *rules.Regular:
			if p, ok := out[id].(*rules.Regular); ok && p.Explicit && !c.Explicit {
				continue
			}
			out[id] = c
		}
	}

	if agg, ok := out[rules.CustomRulesID].(*rules.CustomAggregate); ok && sel.Mode == rules.ModeDefault {
		out[rules.CustomRulesID] = agg.Filter(sel.AllowsCustom)
	}
	return out
}

// mergePaths replaces the parent's filters when the child is anchored in a
// different directory; otherwise the lists are combined so that each side's
// exclusions override the other's inclusions.
func mergePaths(parent, child *Config) (included, excluded []string) {
	if parent.RootDir != child.RootDir {
		return clone(child.Included), clone(child.Excluded)
	}
	included = append(without(parent.Included, child.Excluded), child.Included...)
	excluded = append(without(parent.Excluded, child.Included), child.Excluded...)
	return included, excluded
}

func without(list, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, s := range drop {
		skip[s] = true
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !skip[s] {
			out = append(out, s)
		}
	}
	return out
}

func clone(list []string) []string {
	if list == nil {
		return nil
	}
	return append([]string(nil), list...)
}

func minThreshold(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b < *a:
		return b
	default:
		return a
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
