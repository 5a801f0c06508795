package rules

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
)

// CustomRulesID is the identifier of the custom rules aggregate.
const CustomRulesID = "custom_rules"

// Instance is a configured rule. It is either a *Regular instance of a
// cataloged descriptor or the *CustomAggregate of regex-based sub-rules.
type Instance interface {
	ID() string
	sealed()
}

// Regular is a cataloged rule with its resolved options. Identity is the
// descriptor ID; options are not part of it.
type Regular struct {
	Rule    Descriptor
	Options any
	// Explicit is set when Options came from user configuration rather than
	// the rule's defaults.
	Explicit bool
}

func (r *Regular) ID() string { return r.Rule.ID() }
func (*Regular) sealed()      {}

// CustomRule is one regex-based sub-rule of the custom rules aggregate.
type CustomRule struct {
	ID       string     `json:"-"`
	Name     string     `json:"name,omitempty"`
	Regex    string     `json:"regex"`
	Message  string     `json:"message,omitempty"`
	Severity Severity   `json:"severity,omitempty"`
	Included StringList `json:"included,omitempty"`
	Excluded StringList `json:"excluded,omitempty"`
}

// CustomAggregate holds custom sub-rules sorted by identifier.
type CustomAggregate struct {
	Rules []CustomRule
}

func (*CustomAggregate) ID() string { return CustomRulesID }
func (*CustomAggregate) sealed()    {}

// IDs returns the sub-rule identifiers in order.
func (a *CustomAggregate) IDs() []string {
	ids := make([]string, len(a.Rules))
	for i, r := range a.Rules {
		ids[i] = r.ID
	}
	return ids
}

// Rule returns the sub-rule with the given identifier.
func (a *CustomAggregate) Rule(id string) (CustomRule, bool) {
	for _, r := range a.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return CustomRule{}, false
}

// Merge returns the union of a and child keyed by sub-rule identifier; the
// child's definition replaces a same-identifier definition in a.
func (a *CustomAggregate) Merge(child *CustomAggregate) *CustomAggregate {
	byID := map[string]CustomRule{}
	if a != nil {
		for _, r := range a.Rules {
			byID[r.ID] = r
		}
	}
	if child != nil {
		for _, r := range child.Rules {
			byID[r.ID] = r
		}
	}
	return newAggregate(byID)
}

// Filter returns the sub-rules for which keep reports true.
func (a *CustomAggregate) Filter(keep func(id string) bool) *CustomAggregate {
	byID := map[string]CustomRule{}
	for _, r := range a.Rules {
		if keep(r.ID) {
			byID[r.ID] = r
		}
	}
	return newAggregate(byID)
}

func newAggregate(byID map[string]CustomRule) *CustomAggregate {
	out := &CustomAggregate{Rules: make([]CustomRule, 0, len(byID))}
	for _, r := range byID {
		out.Rules = append(out.Rules, r)
	}
	sort.Slice(out.Rules, func(i, j int) bool { return out.Rules[i].ID < out.Rules[j].ID })
	return out
}

// ParseCustomRules decodes a custom_rules mapping. Sub-rules that fail to
// decode are left out of the returned aggregate and reported in the joined
// error; the aggregate is never nil.
func ParseCustomRules(value any) (*CustomAggregate, error) {
	if value == nil {
		return &CustomAggregate{}, nil
	}
	tree, ok := value.(map[string]any)
	if !ok {
		return &CustomAggregate{}, fmt.Errorf("expected a mapping of custom rules, got %T", value)
	}

	byID := map[string]CustomRule{}
	var errs []error
	for id, raw := range tree {
		r, err := parseCustomRule(id, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		byID[id] = r
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return newAggregate(byID), errors.Join(errs...)
}

func parseCustomRule(id string, raw any) (CustomRule, error) {
	tree, ok := raw.(map[string]any)
	if !ok {
		return CustomRule{}, fmt.Errorf("custom rule %s: expected a mapping, got %T", id, raw)
	}

	r := CustomRule{Severity: SeverityWarning}
	if err := decodeInto(tree, &r); err != nil {
		return CustomRule{}, fmt.Errorf("custom rule %s: %w", id, err)
	}
	r.ID = id
	if r.Regex == "" {
		return CustomRule{}, fmt.Errorf("custom rule %s: regex is required", id)
	}
	if _, err := regexp.Compile(r.Regex); err != nil {
		return CustomRule{}, fmt.Errorf("custom rule %s: invalid regex: %w", id, err)
	}
	for _, pattern := range append(append([]string{}, r.Included...), r.Excluded...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return CustomRule{}, fmt.Errorf("custom rule %s: invalid path regex %q: %w", id, pattern, err)
		}
	}
	return r, nil
}

// Equal reports whether two instances have the same identity and payload.
func Equal(a, b Instance) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Regular:
		y, ok := b.(*Regular)
		return ok && x.ID() == y.ID() && x.Explicit == y.Explicit && reflect.DeepEqual(x.Options, y.Options)
	case *CustomAggregate:
		y, ok := b.(*CustomAggregate)
		if !ok || len(x.Rules) != len(y.Rules) {
			return false
		}
		for i := range x.Rules {
			if !reflect.DeepEqual(x.Rules[i], y.Rules[i]) {
				return false
			}
		}
		return true
	}
	return false
}
