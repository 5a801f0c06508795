// Package builtin contains the descriptors of all built-in rules.
//
// Only the configuration surface of each rule lives here: identifiers,
// aliases, opt-in status and option decoding. Detection logic is supplied by
// the lint engine that consumes resolved configurations.
package builtin

import (
	"fmt"

	"github.com/sofmeright/lintcascade/src/rules"
)

// LineLengthOptions configures line_length.
type LineLengthOptions struct {
	Thresholds
	IgnoresURLs     bool `json:"ignores_urls"`
	IgnoresComments bool `json:"ignores_comments"`
}

// FileLengthOptions configures file_length.
type FileLengthOptions struct {
	Thresholds
	IgnoreCommentOnlyLines bool `json:"ignore_comment_only_lines"`
}

// FileSizeOptions configures file_size.
type FileSizeOptions struct {
	MaxBytes int64 `json:"max_bytes"`
}

// TrailingWhitespaceOptions configures trailing_whitespace.
type TrailingWhitespaceOptions struct {
	Severity          rules.Severity `json:"severity"`
	IgnoresEmptyLines bool           `json:"ignores_empty_lines"`
	IgnoresComments   bool           `json:"ignores_comments"`
}

// LeadingTabsOptions configures leading_tabs.
type LeadingTabsOptions struct {
	Severity rules.Severity   `json:"severity"`
	Suffixes rules.StringList `json:"suffixes"`
}

// IdentifierNameOptions configures identifier_name.
type IdentifierNameOptions struct {
	MinLength Thresholds `json:"min_length"`
	MaxLength Thresholds `json:"max_length"`
	Excluded  []string   `json:"excluded"`
}

// ExplicitTypeInterfaceOptions configures explicit_type_interface.
type ExplicitTypeInterfaceOptions struct {
	Severity rules.Severity `json:"severity"`
	Excluded []string       `json:"excluded"`
}

const defaultMaxBytes int64 = 500 * 1024 // 500 KB

var (
	lineLength = rules.Define(rules.Spec[LineLengthOptions]{
		Name:     "line_length",
		Defaults: LineLengthOptions{Thresholds: Thresholds{Warning: 120, Error: 200}},
		Shorthand: func(v any, base LineLengthOptions) (LineLengthOptions, error) {
			t, err := thresholdShorthand(v, base.Thresholds)
			base.Thresholds = t
			return base, err
		},
		Validate: func(o LineLengthOptions) error { return validateThresholds(o.Thresholds) },
	})

	fileLength = rules.Define(rules.Spec[FileLengthOptions]{
		Name:     "file_length",
		Defaults: FileLengthOptions{Thresholds: Thresholds{Warning: 400, Error: 1000}},
		Shorthand: func(v any, base FileLengthOptions) (FileLengthOptions, error) {
			t, err := thresholdShorthand(v, base.Thresholds)
			base.Thresholds = t
			return base, err
		},
		Validate: func(o FileLengthOptions) error { return validateThresholds(o.Thresholds) },
	})

	fileSize = rules.Define(rules.Spec[FileSizeOptions]{
		Name:     "file_size",
		Defaults: FileSizeOptions{MaxBytes: defaultMaxBytes},
		Validate: func(o FileSizeOptions) error {
			if o.MaxBytes <= 0 {
				return fmt.Errorf("max_bytes must be positive, got %d", o.MaxBytes)
			}
			return nil
		},
	})

	trailingWhitespace = rules.Define(rules.Spec[TrailingWhitespaceOptions]{
		Name:     "trailing_whitespace",
		Defaults: TrailingWhitespaceOptions{Severity: rules.SeverityWarning},
		Shorthand: func(v any, base TrailingWhitespaceOptions) (TrailingWhitespaceOptions, error) {
			sev, err := rules.ParseSeverity(v)
			if err != nil {
				return base, err
			}
			base.Severity = sev
			return base, nil
		},
	})

	// Only leading tabs are flagged, tabs inside content are fine.
	leadingTabs = rules.Define(rules.Spec[LeadingTabsOptions]{
		Name:       "leading_tabs",
		AliasNames: []string{"tabs"},
		Defaults: LeadingTabsOptions{
			Severity: rules.SeverityWarning,
			Suffixes: rules.StringList{".yml", ".yaml"},
		},
	})

	todo = rules.Define(rules.Spec[SeverityOptions]{
		Name:      "todo",
		Defaults:  SeverityOptions{Severity: rules.SeverityWarning},
		Shorthand: severityShorthand,
	})

	identifierName = rules.Define(rules.Spec[IdentifierNameOptions]{
		Name:       "identifier_name",
		AliasNames: []string{"variable_name"},
		Defaults: IdentifierNameOptions{
			MinLength: Thresholds{Warning: 3, Error: 2},
			MaxLength: Thresholds{Warning: 40, Error: 60},
		},
		Validate: func(o IdentifierNameOptions) error {
			if o.MinLength.Error > o.MinLength.Warning {
				return fmt.Errorf("min_length error %d exceeds warning %d", o.MinLength.Error, o.MinLength.Warning)
			}
			return validateThresholds(o.MaxLength)
		},
	})

	forceCast = rules.Define(rules.Spec[SeverityOptions]{
		Name:      "force_cast",
		IsOptIn:   true,
		Defaults:  SeverityOptions{Severity: rules.SeverityError},
		Shorthand: severityShorthand,
	})

	forceUnwrapping = rules.Define(rules.Spec[SeverityOptions]{
		Name:      "force_unwrapping",
		IsOptIn:   true,
		Defaults:  SeverityOptions{Severity: rules.SeverityWarning},
		Shorthand: severityShorthand,
	})

	emptyCount = rules.Define(rules.Spec[SeverityOptions]{
		Name:      "empty_count",
		IsOptIn:   true,
		Defaults:  SeverityOptions{Severity: rules.SeverityError},
		Shorthand: severityShorthand,
	})

	sortedImports = rules.Define(rules.Spec[SeverityOptions]{
		Name:      "sorted_imports",
		IsOptIn:   true,
		Defaults:  SeverityOptions{Severity: rules.SeverityWarning},
		Shorthand: severityShorthand,
	})

	explicitTypeInterface = rules.Define(rules.Spec[ExplicitTypeInterfaceOptions]{
		Name:     "explicit_type_interface",
		IsOptIn:  true,
		Defaults: ExplicitTypeInterfaceOptions{Severity: rules.SeverityWarning},
	})
)

// Descriptors returns every built-in rule descriptor.
func Descriptors() []rules.Descriptor {
	return []rules.Descriptor{
		emptyCount,
		explicitTypeInterface,
		fileLength,
		fileSize,
		forceCast,
		forceUnwrapping,
		identifierName,
		leadingTabs,
		lineLength,
		sortedImports,
		todo,
		trailingWhitespace,
	}
}

// Catalog returns a catalog of the built-in rules.
func Catalog() *rules.Catalog {
	return rules.MustCatalog(Descriptors()...)
}
