// Package cli implements the weft command-line surface.
//
// The CLI is a thin boundary: it canonicalizes flags into an Invocation,
// constructs the requested passes, and maps engine errors onto semantic exit
// codes. No rewrite logic lives here.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Run executes the CLI with the given argument slice (excluding argv[0]) and
// returns the semantic exit code. Suitable for black-box tests.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "weft:", err)
		var ee *ExitError
		if errors.As(err, &ee) {
			return ee.Code
		}
		// Anything cobra itself rejects (unknown flag/command) is an invalid
		// invocation.
		return ExitInvalidInvocation
	}
	return ExitSuccess
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "weft",
		Short:         "weft rewrites dataflow graphs",
		Long:          "weft applies deterministic rewrite passes (common subexpression elimination, dead-code elimination) to dataflow graph documents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newRunCmd(stdout, stderr))
	root.AddCommand(newCheckCmd(stdout, stderr))
	return root
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	inv := Invocation{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply rewrite passes to a graph document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &ExitError{Code: ExitInvalidInvocation, Msg: fmt.Sprintf("unexpected argument %q", args[0])}
			}
			if err := inv.normalize(); err != nil {
				return err
			}
			return executeRun(inv, stdout, newLogger(stderr, inv.Verbose))
		},
	}
	cmd.Flags().StringVar(&inv.GraphPath, "graph", "", "path to the YAML graph document (required)")
	cmd.Flags().StringVar(&inv.OutPath, "out", "", "write the rewritten graph document here (default: stdout)")
	cmd.Flags().StringVar(&inv.TracePath, "trace", "", "write the canonical rewrite trace JSON here")
	cmd.Flags().StringSliceVar(&inv.Passes, "pass", nil, "passes to apply in order (cse, dce); default cse")
	cmd.Flags().BoolVar(&inv.Fixpoint, "fixpoint", false, "re-apply the pass sequence until nothing changes")
	cmd.Flags().IntVar(&inv.MaxIterations, "max-iterations", 0, "bound fixpoint iteration (default 10)")
	cmd.Flags().BoolVarP(&inv.Verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func newCheckCmd(stdout, stderr io.Writer) *cobra.Command {
	inv := Invocation{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a graph document without rewriting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &ExitError{Code: ExitInvalidInvocation, Msg: fmt.Sprintf("unexpected argument %q", args[0])}
			}
			if inv.GraphPath == "" {
				return &ExitError{Code: ExitInvalidInvocation, Msg: "a graph file is required (--graph)"}
			}
			return executeCheck(inv, stdout)
		},
	}
	cmd.Flags().StringVar(&inv.GraphPath, "graph", "", "path to the YAML graph document (required)")
	cmd.Flags().BoolVarP(&inv.Verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
