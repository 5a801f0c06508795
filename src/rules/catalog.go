package rules

import (
	"fmt"
	"sort"
)

// Catalog is an immutable registry of rule descriptors keyed by identifier.
// Deprecated aliases resolve to their canonical identifier.
type Catalog struct {
	byID    map[string]Descriptor
	aliases map[string]string
	ids     []string
	optIn   []string
}

// NewCatalog builds a catalog. Duplicate identifiers or aliases are an error.
func NewCatalog(descriptors ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		byID:    make(map[string]Descriptor, len(descriptors)),
		aliases: map[string]string{},
	}

	for _, d := range descriptors {
		id := d.ID()
		if id == "" {
			return nil, fmt.Errorf("rules: descriptor with empty identifier")
		}
		if id == CustomRulesID {
			return nil, fmt.Errorf("rules: identifier %q is reserved", id)
		}
		if _, exists := c.byID[id]; exists {
			return nil, fmt.Errorf("rules: duplicate rule registration: %s", id)
		}
		if owner, exists := c.aliases[id]; exists {
			return nil, fmt.Errorf("rules: identifier %s already used as alias of %s", id, owner)
		}
		c.byID[id] = d
		c.ids = append(c.ids, id)
		if d.OptIn() {
			c.optIn = append(c.optIn, id)
		}
	}

	for _, d := range descriptors {
		for _, alias := range d.Aliases() {
			if _, exists := c.byID[alias]; exists {
				return nil, fmt.Errorf("rules: alias %s of %s shadows a rule identifier", alias, d.ID())
			}
			if owner, exists := c.aliases[alias]; exists {
				return nil, fmt.Errorf("rules: alias %s registered by both %s and %s", alias, owner, d.ID())
			}
			c.aliases[alias] = d.ID()
		}
	}

	sort.Strings(c.ids)
	sort.Strings(c.optIn)
	return c, nil
}

// MustCatalog is NewCatalog that panics on error, for static rule sets.
func MustCatalog(descriptors ...Descriptor) *Catalog {
	c, err := NewCatalog(descriptors...)
	if err != nil {
		panic(err)
	}
	return c
}

// Canonical resolves an identifier or alias. The custom rules aggregate is
// always known.
func (c *Catalog) Canonical(id string) (string, bool) {
	if id == CustomRulesID {
		return id, true
	}
	if _, ok := c.byID[id]; ok {
		return id, true
	}
	if target, ok := c.aliases[id]; ok {
		return target, true
	}
	return id, false
}

// IsAlias reports whether id is a deprecated alias rather than a canonical identifier.
func (c *Catalog) IsAlias(id string) bool {
	_, ok := c.aliases[id]
	return ok
}

func (c *Catalog) unknown(id string) bool {
	_, ok := c.Canonical(id)
	return !ok
}

// Lookup returns the descriptor for an identifier or alias.
func (c *Catalog) Lookup(id string) (Descriptor, bool) {
	canonical, ok := c.Canonical(id)
	if !ok {
		return nil, false
	}
	d, ok := c.byID[canonical]
	return d, ok
}

// IDs returns sorted canonical identifiers of all cataloged rules.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// OptInIDs returns sorted identifiers of opt-in rules.
func (c *Catalog) OptInIDs() []string {
	return append([]string(nil), c.optIn...)
}

// IsOptIn reports whether the (alias-resolved) identifier names an opt-in rule.
func (c *Catalog) IsOptIn(id string) bool {
	d, ok := c.Lookup(id)
	return ok && d.OptIn()
}

// Default returns a default-configured instance of the rule.
func (c *Catalog) Default(id string) (Instance, bool) {
	if id == CustomRulesID {
		return &CustomAggregate{}, true
	}
	d, ok := c.Lookup(id)
	if !ok {
		return nil, false
	}
	return &Regular{Rule: d, Options: d.DefaultOptions()}, true
}

// Instantiate builds an explicitly configured instance from a configuration
// value.
//
// A malformed value yields an *OptionsError together with a usable fallback
// instance: the rule's defaults, or for custom rules the aggregate of the
// sub-rules that did parse. Callers report the error as a warning and keep
// the fallback.
func (c *Catalog) Instantiate(id string, value any) (Instance, error) {
	canonical, ok := c.Canonical(id)
	if !ok {
		return nil, fmt.Errorf("rules: unknown rule: %s", id)
	}

	if canonical == CustomRulesID {
		agg, err := ParseCustomRules(value)
		if err != nil {
			return agg, &OptionsError{RuleID: canonical, Err: err}
		}
		return agg, nil
	}

	d := c.byID[canonical]
	opts, err := d.ParseOptions(value)
	if err != nil {
		return &Regular{Rule: d, Options: d.DefaultOptions()}, &OptionsError{RuleID: canonical, Err: err}
	}
	return &Regular{Rule: d, Options: opts, Explicit: true}, nil
}
