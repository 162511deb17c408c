package qpdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes a shell script that stands in for qpdf. The real tool is
// not assumed to be installed on test machines.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-qpdf")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestDecompressReturnsToolOutput(t *testing.T) {
	// The gateway invokes `<tool> --stream-data=uncompress <input> -`;
	// echo the input back to prove argument order and stdout plumbing.
	tool := fakeTool(t, `cat "$2"`)

	doc := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.7 uncompressed body"), 0o644))

	g := New(Config{Path: tool})
	out, err := g.Decompress(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 uncompressed body", string(out))
}

func TestDecompressNonZeroExitIsToolError(t *testing.T) {
	tool := fakeTool(t, `echo "damaged file" >&2; exit 2`)

	g := New(Config{Path: tool})
	_, err := g.Decompress(context.Background(), "/corpus/bad.pdf")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, 2, toolErr.ExitCode)
	assert.Equal(t, "/corpus/bad.pdf", toolErr.Path)
	assert.Contains(t, toolErr.Stderr, "damaged file")
}

func TestDecompressMissingToolIsFatal(t *testing.T) {
	g := New(Config{Path: filepath.Join(t.TempDir(), "no-such-tool")})
	_, err := g.Decompress(context.Background(), "doc.pdf")

	require.Error(t, err)
	var toolErr *ToolError
	assert.False(t, errors.As(err, &toolErr), "a missing tool is a run-level fault, not a per-document one")
}

func TestDecompressCancelledContext(t *testing.T) {
	tool := fakeTool(t, `sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(Config{Path: tool})
	_, err := g.Decompress(ctx, "doc.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecompressRespectsProcessCap(t *testing.T) {
	tool := fakeTool(t, `cat "$2"`)
	doc := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o644))

	// Cap of one still lets sequential calls through.
	g := New(Config{Path: tool, MaxProcs: 1})
	for i := 0; i < 3; i++ {
		_, err := g.Decompress(context.Background(), doc)
		require.NoError(t, err)
	}
}
