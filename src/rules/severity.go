package rules

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the level a rule violation is reported at.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

var _ encoding.TextUnmarshaler = (*Severity)(nil)

// UnmarshalText accepts "warning" or "error" in any case.
func (s *Severity) UnmarshalText(b []byte) error {
	switch Severity(strings.ToLower(strings.TrimSpace(string(b)))) {
	case SeverityWarning:
		*s = SeverityWarning
	case SeverityError:
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q (supported: warning, error)", b)
	}
	return nil
}

// ParseSeverity decodes a severity from a configuration scalar.
func ParseSeverity(value any) (Severity, error) {
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("severity must be a string, got %T", value)
	}
	var s Severity
	if err := s.UnmarshalText([]byte(str)); err != nil {
		return "", err
	}
	return s, nil
}

// StringList decodes either a single string or a list of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("expected a string or a list of strings")
	}
	*l = many
	return nil
}
