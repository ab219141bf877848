package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weft/internal/cli"
	"weft/internal/graphio"
)

const duplicateWorkDoc = `
nodes:
  - name: x
    kind: input
  - name: a
    kind: call
    target: core::relu
    args: [{node: x}]
  - name: b
    kind: call
    target: core::relu
    args: [{node: x}]
  - name: sum
    kind: call
    target: core::add.Tensor
    args: [{node: a}, {node: b}]
output: [{node: sum}]
`

func writeDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli.Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_RewritesGraph(t *testing.T) {
	graph := writeDoc(t, duplicateWorkDoc)
	out := filepath.Join(t.TempDir(), "out.yaml")
	tracePath := filepath.Join(t.TempDir(), "trace.json")

	code, stdout, stderr := runCLI(t,
		"run", "--graph", graph, "--out", out, "--trace", tracePath)
	require.Equal(t, cli.ExitSuccess, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "changed: true")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	g, err := graphio.Decode(data)
	require.NoError(t, err)
	// x, one relu, sum, output.
	assert.Equal(t, 4, g.Len())

	raw, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	var tr struct {
		GraphHash string `json:"graphHash"`
		Events    []struct {
			Kind string `json:"kind"`
			Pass string `json:"pass"`
			Node string `json:"node"`
			Into string `json:"into"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(raw, &tr))
	assert.NotEmpty(t, tr.GraphHash)
	require.Len(t, tr.Events, 1)
	assert.Equal(t, "NodeMerged", tr.Events[0].Kind)
	assert.Equal(t, "b", tr.Events[0].Node)
	assert.Equal(t, "a", tr.Events[0].Into)
}

func TestRun_IdempotentOnRewrittenOutput(t *testing.T) {
	graph := writeDoc(t, duplicateWorkDoc)
	first := filepath.Join(t.TempDir(), "first.yaml")

	code, _, _ := runCLI(t, "run", "--graph", graph, "--out", first)
	require.Equal(t, cli.ExitSuccess, code)

	code, stdout, _ := runCLI(t, "run", "--graph", first)
	require.Equal(t, cli.ExitSuccess, code)
	assert.Contains(t, stdout, "changed: false")
}

func TestRun_WritesGraphToStdoutWithoutOutFlag(t *testing.T) {
	graph := writeDoc(t, duplicateWorkDoc)

	code, stdout, _ := runCLI(t, "run", "--graph", graph)
	require.Equal(t, cli.ExitSuccess, code)

	doc := strings.TrimSuffix(stdout, "changed: true\n")
	g, err := graphio.Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())
}

func TestRun_UnknownPassIsInvalidInvocation(t *testing.T) {
	graph := writeDoc(t, duplicateWorkDoc)

	code, _, stderr := runCLI(t, "run", "--graph", graph, "--pass", "inline")
	assert.Equal(t, cli.ExitInvalidInvocation, code)
	assert.Contains(t, stderr, "inline")
}

func TestRun_MissingGraphFlag(t *testing.T) {
	code, _, _ := runCLI(t, "run")
	assert.Equal(t, cli.ExitInvalidInvocation, code)
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _, _ := runCLI(t, "run", "--frobnicate")
	assert.Equal(t, cli.ExitInvalidInvocation, code)
}

func TestRun_MissingFile(t *testing.T) {
	code, _, _ := runCLI(t, "run", "--graph", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, cli.ExitDecodeError, code)
}

func TestRun_MalformedDocument(t *testing.T) {
	graph := writeDoc(t, "nodes: []\n")
	code, _, _ := runCLI(t, "run", "--graph", graph)
	assert.Equal(t, cli.ExitDecodeError, code)
}

func TestCheck_ValidGraph(t *testing.T) {
	graph := writeDoc(t, duplicateWorkDoc)
	code, stdout, _ := runCLI(t, "check", "--graph", graph)
	require.Equal(t, cli.ExitSuccess, code)
	assert.Contains(t, stdout, "ok: 5 nodes")
}

func TestCheck_InvalidGraph(t *testing.T) {
	graph := writeDoc(t, "nodes:\n  - name: x\n    kind: input\n")
	code, _, _ := runCLI(t, "check", "--graph", graph)
	assert.Equal(t, cli.ExitDecodeError, code)
}
