package config

import (
	"github.com/sofmeright/lintcascade/src/rules"
)

// Validate checks the rule identifiers a folded configuration mentions. An
// identifier that is neither cataloged nor a custom sub-rule is reported to
// sink and removed from the returned configuration's selection.
func Validate(cat *rules.Catalog, cfg *Config, sink Sink) *Config {
	known := func(id string) bool {
		if _, ok := cat.Canonical(id); ok {
			return true
		}
		agg, ok := cfg.Instances[rules.CustomRulesID].(*rules.CustomAggregate)
		if !ok {
			return false
		}
		_, ok = agg.Rule(id)
		return ok
	}

	var unknown []string
	for _, id := range cfg.Selection.Mentioned().Sorted() {
		if !known(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) == 0 {
		return cfg
	}

	for _, id := range unknown {
		warnf(sink, WarnUnknownRule, cfg.Origin, "%q is not a known rule identifier", id)
	}
	out := *cfg
	out.Selection = cfg.Selection.Retain(known)
	return &out
}
