// Package scan is the concurrent processing pipeline: a bounded pool of
// workers pulls document paths from a queue, runs each one through
// cache → decompress → classify exactly once, and feeds the results to a
// single collector that owns all aggregate state.
//
// Failure semantics are fail-fast. A qpdf rejection is a per-document
// event: logged, skipped, never cached. Everything else — unreadable
// corpus files, cache I/O faults, a missing tool — cancels the whole run,
// and the partial aggregate is discarded rather than reported as complete.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/marco-c/pdf-finder/internal/cache"
	"github.com/marco-c/pdf-finder/internal/classify"
	"github.com/marco-c/pdf-finder/internal/qpdf"
	"github.com/marco-c/pdf-finder/internal/types"
)

// Decompressor produces the uncompressed-stream bytes for a document.
type Decompressor interface {
	Decompress(ctx context.Context, path string) ([]byte, error)
}

// Store memoizes feature records across runs.
type Store interface {
	Load(docPath string) (types.FeatureRecord, error)
	Save(docPath string, rec types.FeatureRecord) error
}

// Config wires the pipeline's collaborators.
type Config struct {
	// Workers is the number of concurrent documents in flight.
	// 0 means DefaultWorkers().
	Workers int

	// Gateway decompresses documents. Required.
	Gateway Decompressor

	// Cache memoizes records. Required.
	Cache Store

	// Log receives per-document skip diagnostics and progress output.
	// Defaults to os.Stderr.
	Log io.Writer

	// Progress enables the rate-limited progress line.
	Progress bool
}

// DefaultWorkers is min(32, NumCPU+4): floored above the core count
// because workers mostly sit in subprocess I/O, capped so the qpdf fan-out
// stays bounded on large machines.
func DefaultWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

// outcome is what one worker hands the collector for one document.
// Record is nil when the document was skipped on a decompression failure.
type outcome struct {
	Path      string
	Record    *types.FeatureRecord
	FromCache bool
}

// Run processes every path through the pipeline and returns the aggregate,
// or the first run-level error. Each path is dispatched to exactly one
// worker; workers drain the queue until it closes, so every enqueued
// document is processed at most once per run and all workers terminate.
func Run(ctx context.Context, cfg Config, paths []string) (*Aggregate, error) {
	if cfg.Gateway == nil || cfg.Cache == nil {
		return nil, fmt.Errorf("scan: gateway and cache are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}

	g, ctx := errgroup.WithContext(ctx)

	// The queue's capacity equals the worker count, so discovery feeding
	// naturally suspends once every worker is busy and the buffer is full.
	queue := make(chan string, cfg.Workers)
	results := make(chan outcome, cfg.Workers)

	// Producer. Closing the queue is the shutdown signal: every worker
	// drains until close and exits, no sentinel values needed.
	g.Go(func() error {
		defer close(queue)
		for _, path := range paths {
			select {
			case queue <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	// Workers.
	var workers sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for path := range queue {
				out, err := cfg.process(ctx, path)
				if err != nil {
					return err
				}
				select {
				case results <- out:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	// Collector: the only goroutine that touches the aggregate.
	agg := newAggregate()
	g.Go(func() error {
		prog := newProgress(cfg.Log, len(paths), cfg.Progress)
		for out := range results {
			agg.record(out)
			prog.step(out.FromCache)
		}
		prog.finish()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return agg, nil
}

// process runs the per-document pipeline: cache hit, or read + decompress +
// classify + cache store. A *qpdf.ToolError is contained here; any other
// error escapes and aborts the run.
func (cfg Config) process(ctx context.Context, path string) (outcome, error) {
	rec, err := cfg.Cache.Load(path)
	if err == nil {
		return outcome{Path: path, Record: &rec, FromCache: true}, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		return outcome{}, err
	}

	// The encryption marker must be checked on the bytes as stored;
	// uncompressing can rewrite the trailer that carries it.
	original, err := os.ReadFile(path)
	if err != nil {
		return outcome{}, fmt.Errorf("reading %s: %w", path, err)
	}

	content, err := cfg.Gateway.Decompress(ctx, path)
	if err != nil {
		var toolErr *qpdf.ToolError
		if errors.As(err, &toolErr) {
			fmt.Fprintf(cfg.Log, "error while uncompressing %s:\n%s", path, toolErr.Stderr)
			return outcome{Path: path}, nil
		}
		return outcome{}, err
	}

	rec = classify.Classify(content, original)
	if err := cfg.Cache.Save(path, rec); err != nil {
		return outcome{}, err
	}
	return outcome{Path: path, Record: &rec}, nil
}
