package scan

import (
	"fmt"
	"io"

	"golang.org/x/time/rate"
)

// progress prints a single updating status line while the scan runs.
// Redrawing is rate-limited so a warm cache ripping through thousands of
// documents per second does not flood the terminal.
type progress struct {
	w       io.Writer
	total   int
	done    int
	cached  int
	enabled bool
	limiter *rate.Limiter
}

func newProgress(w io.Writer, total int, enabled bool) *progress {
	return &progress{
		w:       w,
		total:   total,
		enabled: enabled,
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
}

func (p *progress) step(fromCache bool) {
	p.done++
	if fromCache {
		p.cached++
	}
	if p.enabled && p.limiter.Allow() {
		p.draw()
	}
}

func (p *progress) finish() {
	if p.enabled && p.done > 0 {
		p.draw()
		fmt.Fprintln(p.w)
	}
}

func (p *progress) draw() {
	fmt.Fprintf(p.w, "\r%d/%d PDFs (%d cached)", p.done, p.total, p.cached)
}
