// Package qpdf drives the external qpdf tool to produce a PDF with all
// internal stream compression removed, which is what the byte-pattern
// classifier inspects. qpdf runs as a subprocess under a hard virtual
// memory ceiling so a single adversarial document cannot take down the
// whole scan.
package qpdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMemoryLimit is the virtual memory ceiling applied to each qpdf
// child process.
const DefaultMemoryLimit = 4096 * 1024 * 1024 // 4 GiB

// ToolError reports a qpdf invocation that exited non-zero. It is a
// per-document failure: the caller logs it, skips the document, and keeps
// the run going.
type ToolError struct {
	Path     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("qpdf exited %d on %s", e.ExitCode, e.Path)
}

// Config holds gateway settings.
type Config struct {
	// Path is the qpdf executable name or path.
	Path string

	// MemoryLimit is the RLIMIT_AS applied to each child, in bytes.
	// 0 means DefaultMemoryLimit.
	MemoryLimit uint64

	// Timeout bounds one invocation's wall-clock time. 0 disables the
	// timeout: memory is always bounded, time only on request.
	Timeout time.Duration

	// MaxProcs caps how many qpdf processes may run at once, independent
	// of the scheduler's worker count. 0 disables the cap.
	MaxProcs int
}

// Gateway invokes qpdf. Safe for concurrent use.
type Gateway struct {
	cfg Config
	sem *semaphore.Weighted
}

// New creates a gateway from cfg, filling in defaults.
func New(cfg Config) *Gateway {
	if cfg.Path == "" {
		cfg.Path = "qpdf"
	}
	if cfg.MemoryLimit == 0 {
		cfg.MemoryLimit = DefaultMemoryLimit
	}
	g := &Gateway{cfg: cfg}
	if cfg.MaxProcs > 0 {
		g.sem = semaphore.NewWeighted(int64(cfg.MaxProcs))
	}
	return g
}

// Decompress rewrites the document at path with stream compression removed
// and returns the resulting bytes. A non-zero tool exit yields a *ToolError
// carrying the tool's diagnostics; any other error is fatal to the run.
func (g *Gateway) Decompress(ctx context.Context, path string) ([]byte, error) {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer g.sem.Release(1)
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.cfg.Path, "--stream-data=uncompress", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", g.cfg.Path, err)
	}

	// The limit lands just after exec rather than between fork and exec,
	// so the child runs unlimited for a few instructions. qpdf does no
	// meaningful allocation before reading its input.
	if err := setMemoryLimit(cmd.Process.Pid, g.cfg.MemoryLimit); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("limiting qpdf memory: %w", err)
	}

	err := cmd.Wait()
	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctx.Err() != nil {
		// Killed by cancellation or timeout, not a tool verdict.
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ToolError{
			Path:     path,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}
	return nil, fmt.Errorf("running %s on %s: %w", g.cfg.Path, path, err)
}
