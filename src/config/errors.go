package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every fatal failure of configuration resolution matches one
// of these with errors.Is.
var (
	ErrParse                = errors.New("parse error")
	ErrCycle                = errors.New("reference cycle")
	ErrRuleConfig           = errors.New("invalid rule configuration")
	ErrDuplicateRuleConfig  = errors.New("duplicate rule configuration")
	ErrConflictingSelection = errors.New("conflicting rule selection")
	ErrFetch                = errors.New("remote fetch failed")
	ErrIO                   = errors.New("read failed")
	ErrVersion              = errors.New("version requirement not met")
)

// Error is a typed configuration failure with a human-readable explanation.
type Error struct {
	Kind    error
	Origin  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Origin != "" {
		b.WriteString(e.Origin)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, origin string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Origin: origin, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ParseFailure wraps a syntax error of the configuration text at origin.
func ParseFailure(origin string, cause error) *Error {
	return &Error{Kind: ErrParse, Origin: origin, Cause: cause}
}

// CycleError reports a reference cycle. Chain runs from the outermost
// configuration to the reference that closes the cycle.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Chain, " => "))
}

// Is makes errors.Is(err, ErrCycle) hold.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }
