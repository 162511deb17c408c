package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco-c/pdf-finder/internal/cache"
	"github.com/marco-c/pdf-finder/internal/qpdf"
	"github.com/marco-c/pdf-finder/internal/types"
)

// fakeGateway serves canned decompressed bytes and counts invocations per
// path. Paths in fail get their error instead.
type fakeGateway struct {
	mu      sync.Mutex
	calls   map[string]int
	content map[string][]byte
	fail    map[string]error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		calls:   make(map[string]int),
		content: make(map[string][]byte),
		fail:    make(map[string]error),
	}
}

func (g *fakeGateway) Decompress(ctx context.Context, path string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[path]++
	if err, ok := g.fail[path]; ok {
		return nil, err
	}
	return g.content[path], nil
}

func (g *fakeGateway) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

// writeCorpus creates count PDF files in a temp dir and returns their paths.
func writeCorpus(t *testing.T, count int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, count)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("doc%03d.pdf", i))
		require.NoError(t, os.WriteFile(paths[i], []byte("%PDF-1.7"), 0o644))
	}
	return paths
}

func TestRunProcessesEveryPathExactlyOnce(t *testing.T) {
	for _, workers := range []int{1, 4, 32} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			paths := writeCorpus(t, 50)
			gw := newFakeGateway()
			for _, p := range paths {
				gw.content[p] = []byte("/JavaScript")
			}

			agg, err := Run(context.Background(), Config{
				Workers: workers,
				Gateway: gw,
				Cache:   &cache.Store{},
				Log:     &bytes.Buffer{},
			}, paths)
			require.NoError(t, err)

			rep := agg.Finalize(10, 42)
			assert.Equal(t, 50, rep.TotalScanned)
			assert.Len(t, rep.JS, 50)
			for _, p := range paths {
				assert.Equal(t, 1, gw.calls[p], "path %s", p)
			}
		})
	}
}

func TestRunSecondPassHitsCacheOnly(t *testing.T) {
	paths := writeCorpus(t, 20)
	gw := newFakeGateway()
	for i, p := range paths {
		if i%2 == 0 {
			gw.content[p] = []byte(xfaMarker)
		}
	}

	cfg := Config{Workers: 4, Gateway: gw, Cache: &cache.Store{}, Log: &bytes.Buffer{}}

	first, err := Run(context.Background(), cfg, paths)
	require.NoError(t, err)
	require.Equal(t, 20, gw.totalCalls())

	second, err := Run(context.Background(), cfg, paths)
	require.NoError(t, err)
	assert.Equal(t, 20, gw.totalCalls(), "warm cache must bypass decompression entirely")

	// Same corpus, same cache: identical aggregate, up to completion order.
	a := first.Finalize(10, 42)
	b := second.Finalize(10, 42)
	assert.Equal(t, a.TotalScanned, b.TotalScanned)
	assert.ElementsMatch(t, a.XFA, b.XFA)
	assert.Equal(t, a.TopImageTypes, b.TopImageTypes)
	assert.Len(t, b.XFA, 10)
}

func TestRunDecompressionFailureIsSkipped(t *testing.T) {
	paths := writeCorpus(t, 5)
	gw := newFakeGateway()
	for _, p := range paths {
		gw.content[p] = []byte("/JavaScript")
	}
	gw.fail[paths[2]] = &qpdf.ToolError{
		Path:     paths[2],
		ExitCode: 1,
		Stderr:   "bad xref table\n",
	}

	var log bytes.Buffer
	store := &cache.Store{}
	agg, err := Run(context.Background(), Config{
		Workers: 2,
		Gateway: gw,
		Cache:   store,
		Log:     &log,
	}, paths)
	require.NoError(t, err, "a tool failure is per-document, not run-fatal")

	rep := agg.Finalize(10, 42)
	assert.Equal(t, 4, rep.TotalScanned)
	assert.Equal(t, 1, rep.SkippedDocuments)
	assert.NotContains(t, rep.JS, paths[2])
	assert.Contains(t, log.String(), "bad xref table")

	// The failed document must not be cached, so a later run retries it.
	_, err = store.Load(paths[2])
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRunFailsFastOnWorkerError(t *testing.T) {
	paths := writeCorpus(t, 200)
	gw := newFakeGateway()
	gw.fail[paths[7]] = errors.New("qpdf binary vanished")

	done := make(chan struct{})
	var agg *Aggregate
	var err error
	go func() {
		agg, err = Run(context.Background(), Config{
			Workers: 4,
			Gateway: gw,
			Cache:   &cache.Store{},
			Log:     &bytes.Buffer{},
		}, paths)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not abort after a fatal worker error")
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qpdf binary vanished")
	assert.Nil(t, agg, "a failed run must not yield a partial aggregate")
}

func TestRunFailsOnUnreadableDocument(t *testing.T) {
	paths := writeCorpus(t, 3)
	require.NoError(t, os.Remove(paths[1]))

	gw := newFakeGateway()
	_, err := Run(context.Background(), Config{
		Workers: 2,
		Gateway: gw,
		Cache:   &cache.Store{},
		Log:     &bytes.Buffer{},
	}, paths)
	assert.Error(t, err)
}

func TestRunFailsOnCacheSaveFault(t *testing.T) {
	paths := writeCorpus(t, 3)
	gw := newFakeGateway()

	_, err := Run(context.Background(), Config{
		Workers: 2,
		Gateway: gw,
		Cache:   &faultStore{},
		Log:     &bytes.Buffer{},
	}, paths)
	assert.Error(t, err)
}

type faultStore struct{}

func (s *faultStore) Load(string) (types.FeatureRecord, error) {
	return types.FeatureRecord{}, cache.ErrMiss
}

func (s *faultStore) Save(string, types.FeatureRecord) error {
	return errors.New("disk full")
}

func TestRunToSourceImpliesJS(t *testing.T) {
	paths := writeCorpus(t, 2)
	gw := newFakeGateway()
	gw.content[paths[0]] = []byte("mentions toSource but no script markers")
	gw.content[paths[1]] = []byte("/JavaScript this.toSource()")

	agg, err := Run(context.Background(), Config{
		Workers: 1,
		Gateway: gw,
		Cache:   &cache.Store{},
		Log:     &bytes.Buffer{},
	}, paths)
	require.NoError(t, err)

	rep := agg.Finalize(10, 42)
	assert.Equal(t, []string{paths[1]}, rep.ToSource)
	for _, p := range rep.ToSource {
		assert.Contains(t, rep.JS, p)
	}
}

func TestRunChecksEncryptionOnOriginalBytes(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "locked.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.7 trailer << /Encrypt 9 0 R >>"), 0o644))

	gw := newFakeGateway()
	gw.content[doc] = []byte("no encryption marker after rewrite")

	agg, err := Run(context.Background(), Config{
		Workers: 1,
		Gateway: gw,
		Cache:   &cache.Store{},
		Log:     &bytes.Buffer{},
	}, []string{doc})
	require.NoError(t, err)

	rep := agg.Finalize(10, 42)
	assert.Equal(t, []string{doc}, rep.Encrypted)
}

func TestRunWithEmptyCorpus(t *testing.T) {
	agg, err := Run(context.Background(), Config{
		Workers: 8,
		Gateway: newFakeGateway(),
		Cache:   &cache.Store{},
		Log:     &bytes.Buffer{},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, agg.Finalize(10, 42).TotalScanned)
}

func TestRunCompletionOrderIsStableAtConcurrencyOne(t *testing.T) {
	paths := writeCorpus(t, 10)
	gw := newFakeGateway()
	for _, p := range paths {
		gw.content[p] = []byte("/JavaScript")
	}

	agg, err := Run(context.Background(), Config{
		Workers: 1,
		Gateway: gw,
		Cache:   &cache.Store{},
		Log:     &bytes.Buffer{},
	}, paths)
	require.NoError(t, err)

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	assert.Equal(t, sorted, agg.Finalize(10, 42).JS)
}

func TestDefaultWorkersIsCapped(t *testing.T) {
	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 5)
	assert.LessOrEqual(t, n, 32)
}

const xfaMarker = `<template xmlns="http://www.xfa.org/schema/xfa-template/3.3/">`
