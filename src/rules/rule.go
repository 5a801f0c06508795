package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Descriptor is the capability every cataloged rule provides. Descriptors
// are immutable once a Catalog has been built from them.
type Descriptor interface {
	ID() string
	Aliases() []string
	OptIn() bool
	DefaultOptions() any
	// ParseOptions decodes a configuration value into the rule's options.
	ParseOptions(value any) (any, error)
}

// Spec is a generic Descriptor whose options decode into T.
//
// Mapping values are decoded on top of Defaults, so a configuration only
// needs to name the fields it changes. Scalars and sequences are handed to
// Shorthand when set.
type Spec[T any] struct {
	Name       string
	AliasNames []string
	IsOptIn    bool
	Defaults   T

	// Shorthand decodes non-mapping values such as "error" or [100, 200].
	Shorthand func(value any, base T) (T, error)
	Validate  func(opts T) error
}

// Define returns a descriptor for the given spec.
func Define[T any](spec Spec[T]) *Spec[T] {
	s := spec
	return &s
}

func (s *Spec[T]) ID() string          { return s.Name }
func (s *Spec[T]) Aliases() []string   { return s.AliasNames }
func (s *Spec[T]) OptIn() bool         { return s.IsOptIn }
func (s *Spec[T]) DefaultOptions() any { return s.fresh() }

// ParseOptions implements Descriptor.
func (s *Spec[T]) ParseOptions(value any) (any, error) {
	opts := s.fresh()

	switch v := value.(type) {
	case nil:
		return opts, nil
	case map[string]any:
		if err := decodeInto(v, &opts); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
	default:
		if s.Shorthand == nil {
			return nil, fmt.Errorf("%s: expected a mapping, got %T", s.Name, value)
		}
		var err error
		opts, err = s.Shorthand(value, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
	}

	if s.Validate != nil {
		if err := s.Validate(opts); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return opts, nil
}

// fresh returns a deep copy of the defaults so decoding never aliases the
// descriptor's own slices or maps.
func (s *Spec[T]) fresh() T {
	var out T
	data, err := json.Marshal(s.Defaults)
	if err != nil {
		return s.Defaults
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return s.Defaults
	}
	return out
}

// decodeInto applies a generic key/value tree to a typed options struct
// using a JSON round trip, rejecting keys the struct does not declare.
func decodeInto(tree map[string]any, out any) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("unmarshal options: %w", err)
	}
	return nil
}

// OptionsError reports a rule configuration payload that does not match the
// rule's expected shape.
type OptionsError struct {
	RuleID string
	Err    error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid configuration for rule %q: %v", e.RuleID, e.Err)
}

func (e *OptionsError) Unwrap() error { return e.Err }
