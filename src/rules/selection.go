package rules

import "sort"

// IDSet is a set of rule identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from identifiers.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Union returns s ∪ o.
func (s IDSet) Union(o IDSet) IDSet {
	out := make(IDSet, len(s)+len(o))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range o {
		out[id] = struct{}{}
	}
	return out
}

// Minus returns s − o.
func (s IDSet) Minus(o IDSet) IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		if !o.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Filter returns the members for which keep reports true.
func (s IDSet) Filter(keep func(id string) bool) IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		if keep(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal compares two sets; nil and empty are equal.
func (s IDSet) Equal(o IDSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Mode is the variant of a Selection.
type Mode int

const (
	// ModeDefault enables non-opt-in rules minus Disabled plus opted-in rules.
	ModeDefault Mode = iota
	// ModeAllEnabled enables every cataloged rule.
	ModeAllEnabled
	// ModeOnly enables exactly the rules in Only.
	ModeOnly
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeAllEnabled:
		return "all_enabled"
	case ModeOnly:
		return "only"
	default:
		return "unknown"
	}
}

// Selection is the rule selection policy of a configuration. Only the sets
// belonging to Mode are meaningful.
type Selection struct {
	Mode     Mode
	Disabled IDSet
	OptIn    IDSet
	Only     IDSet
}

// DefaultSelection returns a Default policy.
func DefaultSelection(disabled, optIn IDSet) Selection {
	return Selection{Mode: ModeDefault, Disabled: disabled.Union(nil), OptIn: optIn.Union(nil)}
}

// AllEnabledSelection returns the AllEnabled policy.
func AllEnabledSelection() Selection {
	return Selection{Mode: ModeAllEnabled}
}

// OnlySelection returns an Only policy.
func OnlySelection(only IDSet) Selection {
	return Selection{Mode: ModeOnly, Only: only.Union(nil)}
}

// Equal compares the meaningful parts of two selections.
func (s Selection) Equal(o Selection) bool {
	if s.Mode != o.Mode {
		return false
	}
	switch s.Mode {
	case ModeDefault:
		return s.Disabled.Equal(o.Disabled) && s.OptIn.Equal(o.OptIn)
	case ModeOnly:
		return s.Only.Equal(o.Only)
	}
	return true
}

// Mentioned returns every identifier the selection names.
func (s Selection) Mentioned() IDSet {
	switch s.Mode {
	case ModeDefault:
		return s.Disabled.Union(s.OptIn)
	case ModeOnly:
		return s.Only.Union(nil)
	}
	return IDSet{}
}

// Retain drops identifiers for which keep reports false.
func (s Selection) Retain(keep func(id string) bool) Selection {
	switch s.Mode {
	case ModeDefault:
		return Selection{Mode: ModeDefault, Disabled: s.Disabled.Filter(keep), OptIn: s.OptIn.Filter(keep)}
	case ModeOnly:
		return Selection{Mode: ModeOnly, Only: s.Only.Filter(keep)}
	}
	return s
}

// Allows reports whether a cataloged rule is active under the selection.
func (s Selection) Allows(cat *Catalog, id string) bool {
	switch s.Mode {
	case ModeAllEnabled:
		return true
	case ModeOnly:
		return s.Only.Has(id)
	default:
		if s.Disabled.Has(id) {
			return false
		}
		return !cat.IsOptIn(id) || s.OptIn.Has(id)
	}
}

// AllowsCustom reports whether a custom sub-rule is active.
func (s Selection) AllowsCustom(subID string) bool {
	switch s.Mode {
	case ModeAllEnabled:
		return true
	case ModeOnly:
		return s.Only.Has(CustomRulesID) || s.Only.Has(subID)
	default:
		return !s.Disabled.Has(CustomRulesID) && !s.Disabled.Has(subID)
	}
}

// MergeSelection combines a parent and a child policy. The child takes
// precedence, but the result depends on both variants. Identifiers the
// catalog does not know are carried through so validation can report them.
func MergeSelection(cat *Catalog, parent, child Selection) Selection {
	switch child.Mode {
	case ModeAllEnabled:
		return AllEnabledSelection()
	case ModeOnly:
		return OnlySelection(child.Only)
	}

	dc, oc := child.Disabled, child.OptIn
	switch parent.Mode {
	case ModeAllEnabled:
		optIn := NewIDSet(cat.OptInIDs()...).Union(oc.Filter(cat.unknown)).Minus(dc)
		return DefaultSelection(dc, optIn)
	case ModeOnly:
		return OnlySelection(parent.Only.Minus(dc).Union(oc))
	default:
		disabled := dc.Union(parent.Disabled.Minus(oc))
		optIn := oc.Union(parent.OptIn.Minus(dc)).
			Filter(func(id string) bool { return cat.IsOptIn(id) || cat.unknown(id) }).
			Minus(disabled)
		return DefaultSelection(disabled, optIn)
	}
}

// Apply returns the active rules under the selection, sorted by identifier.
// Configured instances take the place of defaults; the custom aggregate is
// included when any of its sub-rules remain active.
func (s Selection) Apply(cat *Catalog, instances map[string]Instance) []Instance {
	var out []Instance
	for _, id := range cat.IDs() {
		if !s.Allows(cat, id) {
			continue
		}
		if inst, ok := instances[id]; ok {
			out = append(out, inst)
			continue
		}
		inst, _ := cat.Default(id)
		out = append(out, inst)
	}

	if agg, ok := instances[CustomRulesID].(*CustomAggregate); ok {
		active := agg.Filter(s.AllowsCustom)
		if len(active.Rules) > 0 {
			out = append(out, active)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
