package main

import (
	"context"
	"os"

	"weft/internal/cli"
)

// main is a deterministic boundary: all flag handling and exit-code mapping
// happens in the cli package, which is exercised directly by black-box tests.
func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
