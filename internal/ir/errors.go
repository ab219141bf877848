package ir

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGraph reports structural invariant violations found by Lint or
	// rejected by mutation primitives.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrUnhashable reports an operand with no canonical encoding (Opaque).
	// Callers degrade the affected node to "always unique"; this error never
	// aborts a pass.
	ErrUnhashable = errors.New("operand has no canonical encoding")
)

// GraphError wraps deterministic graph failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func unhashablef(format string, args ...any) error {
	return &GraphError{Kind: ErrUnhashable, Msg: fmt.Sprintf(format, args...)}
}
