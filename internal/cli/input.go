package cli

import (
	"fmt"
	"strings"
)

// Semantic exit codes. Part of the tool's contract with scripts; do not
// renumber.
const (
	ExitSuccess           = 0
	ExitPassFailure       = 1
	ExitInvalidInvocation = 2
	ExitDecodeError       = 3
	ExitInternalError     = 4
)

// Invocation is the fully canonicalized, deterministic description of one run.
// All engine code receives an Invocation; nothing downstream reads flags.
type Invocation struct {
	GraphPath     string
	OutPath       string
	TracePath     string
	Passes        []string
	Fixpoint      bool
	MaxIterations int
	Verbose       bool
}

// knownPasses is the set of pass names the CLI can construct.
var knownPasses = map[string]struct{}{
	"cse": {},
	"dce": {},
}

// normalize validates the invocation and fills defaults.
func (inv *Invocation) normalize() error {
	if inv.GraphPath == "" {
		return &ExitError{Code: ExitInvalidInvocation, Msg: "a graph file is required (--graph)"}
	}
	if len(inv.Passes) == 0 {
		inv.Passes = []string{"cse"}
	}
	for i, p := range inv.Passes {
		p = strings.TrimSpace(p)
		if _, ok := knownPasses[p]; !ok {
			return &ExitError{Code: ExitInvalidInvocation, Msg: fmt.Sprintf("unknown pass %q (known: cse, dce)", p)}
		}
		inv.Passes[i] = p
	}
	if inv.MaxIterations < 1 {
		inv.MaxIterations = 0 // pipeline default
	}
	return nil
}

// ExitError carries a semantic exit code alongside a user-facing message.
type ExitError struct {
	Code int
	Msg  string
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *ExitError) Unwrap() error { return e.Err }
