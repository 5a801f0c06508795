package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// WarningKind classifies recoverable configuration problems.
type WarningKind string

const (
	WarnUnknownRule   WarningKind = "unknown_rule"
	WarnDuplicateRule WarningKind = "duplicate_rule"
	WarnRuleConfig    WarningKind = "rule_config"
	WarnUnknownKey    WarningKind = "unknown_key"
	WarnDeprecatedKey WarningKind = "deprecated_key"
	WarnFallback      WarningKind = "fallback"
	WarnRemote        WarningKind = "remote"
)

// Warning is a recoverable problem. Resolution continues with defaults.
type Warning struct {
	Kind    WarningKind
	Origin  string
	Message string
}

func (w Warning) String() string {
	if w.Origin == "" {
		return fmt.Sprintf("warning: %s", w.Message)
	}
	return fmt.Sprintf("warning: %s: %s", w.Origin, w.Message)
}

// Sink receives warnings. Implementations must be safe for concurrent use.
type Sink interface {
	Warn(w Warning)
}

type discard struct{}

func (discard) Warn(Warning) {}

// Discard is a Sink that drops every warning.
var Discard Sink = discard{}

// Collector records warnings and logs each one.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
	logger   *slog.Logger
}

// NewCollector returns a collector logging through logger; nil disables logging.
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger}
}

// Warn implements Sink.
func (c *Collector) Warn(w Warning) {
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.LogAttrs(context.Background(), slog.LevelWarn, w.Message,
			slog.String("kind", string(w.Kind)),
			slog.String("origin", w.Origin),
		)
	}
}

// Warnings returns a copy of everything recorded so far.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Warning(nil), c.warnings...)
}

// Count returns how many warnings of the given kind were recorded.
func (c *Collector) Count(kind WarningKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

func warnf(sink Sink, kind WarningKind, origin, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Warn(Warning{Kind: kind, Origin: origin, Message: fmt.Sprintf(format, args...)})
}
