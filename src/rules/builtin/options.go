package builtin

import (
	"fmt"

	"github.com/sofmeright/lintcascade/src/rules"
)

// SeverityOptions is the payload of rules whose only knob is the severity.
type SeverityOptions struct {
	Severity rules.Severity `json:"severity"`
}

func severityShorthand(value any, base SeverityOptions) (SeverityOptions, error) {
	sev, err := rules.ParseSeverity(value)
	if err != nil {
		return base, err
	}
	base.Severity = sev
	return base, nil
}

// Thresholds is a warning/error pair of limits.
type Thresholds struct {
	Warning int `json:"warning"`
	Error   int `json:"error,omitempty"`
}

// thresholdShorthand accepts `120` (warning only) or `[120, 200]`.
func thresholdShorthand(value any, base Thresholds) (Thresholds, error) {
	switch v := value.(type) {
	case int:
		base.Warning = v
		return base, nil
	case int64:
		base.Warning = int(v)
		return base, nil
	case []any:
		if len(v) == 0 || len(v) > 2 {
			return base, fmt.Errorf("expected [warning] or [warning, error], got %d values", len(v))
		}
		limits := make([]int, len(v))
		for i, raw := range v {
			n, ok := asInt(raw)
			if !ok {
				return base, fmt.Errorf("threshold %d must be an integer, got %T", i, raw)
			}
			limits[i] = n
		}
		base.Warning = limits[0]
		if len(limits) == 2 {
			base.Error = limits[1]
		}
		return base, nil
	}
	return base, fmt.Errorf("expected an integer or a list of integers, got %T", value)
}

func validateThresholds(t Thresholds) error {
	if t.Warning < 0 {
		return fmt.Errorf("warning must be non-negative, got %d", t.Warning)
	}
	if t.Error != 0 && t.Error < t.Warning {
		return fmt.Errorf("error threshold %d is below warning threshold %d", t.Error, t.Warning)
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
