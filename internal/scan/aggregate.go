package scan

import (
	"sort"

	"github.com/marco-c/pdf-finder/internal/types"
)

// Aggregate accumulates feature records over one run. It is not safe for
// concurrent use: Run confines all mutation to its single collector
// goroutine, and Finalize is called once after Run returns.
type Aggregate struct {
	scanned int
	skipped int

	xfa        []string
	js         []string
	toSource   []string
	tagged     []string
	rectangles []string
	encrypted  []string
	pureXFA    []string

	imageTypes       map[string]int
	nonEmbeddedFonts map[string]int
	hostFunctions    map[string]int
	execMenuItemArgs map[string]int
}

func newAggregate() *Aggregate {
	return &Aggregate{
		imageTypes:       make(map[string]int),
		nonEmbeddedFonts: make(map[string]int),
		hostFunctions:    make(map[string]int),
		execMenuItemArgs: make(map[string]int),
	}
}

// record files one completed document into the membership lists and
// frequency tables. Lists end up in completion order, which is stable only
// at concurrency 1.
func (a *Aggregate) record(out outcome) {
	if out.Record == nil {
		a.skipped++
		return
	}
	a.scanned++
	rec := out.Record

	if rec.UsesXFA {
		a.xfa = append(a.xfa, out.Path)
	}
	if rec.UsesJS {
		a.js = append(a.js, out.Path)
		if rec.UsesToSource {
			a.toSource = append(a.toSource, out.Path)
		}
	}
	if rec.IsTagged {
		a.tagged = append(a.tagged, out.Path)
	}
	if rec.UsesRectangles {
		a.rectangles = append(a.rectangles, out.Path)
	}
	if rec.IsEncrypted {
		a.encrypted = append(a.encrypted, out.Path)
	}
	if rec.IsPureXFA {
		a.pureXFA = append(a.pureXFA, out.Path)
	}

	for _, token := range rec.ImageContentTypes {
		a.imageTypes[token]++
	}
	for _, token := range rec.NonEmbeddedFonts {
		a.nonEmbeddedFonts[token]++
	}
	for _, token := range rec.XFAHostFunctions {
		a.hostFunctions[token]++
	}
	for _, token := range rec.ExecMenuItemArgs {
		a.execMenuItemArgs[token]++
	}
}

// Finalize produces the report: category counts, the XFA∩JS intersection,
// top-N rankings, and the export selections (every XFA document, every JS
// document, and the last taggedTail tagged documents as a bounded sample).
func (a *Aggregate) Finalize(topN, taggedTail int) types.Report {
	rep := types.Report{
		TotalScanned:     a.scanned,
		SkippedDocuments: a.skipped,

		XFA:        a.xfa,
		JS:         a.js,
		ToSource:   a.toSource,
		Tagged:     a.tagged,
		Rectangles: a.rectangles,
		Encrypted:  a.encrypted,
		PureXFA:    a.pureXFA,

		XFAAndJS: intersectionSize(a.xfa, a.js),

		TopImageTypes:       topTokens(a.imageTypes, topN),
		TopNonEmbeddedFonts: topTokens(a.nonEmbeddedFonts, topN),
		TopHostFunctions:    topTokens(a.hostFunctions, topN),
		TopExecMenuItemArgs: topTokens(a.execMenuItemArgs, topN),
	}

	rep.Exports = map[string][]string{
		"xfa":    a.xfa,
		"js":     a.js,
		"tagged": tail(a.tagged, taggedTail),
	}
	return rep
}

func intersectionSize(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	n := 0
	for _, p := range b {
		if _, ok := set[p]; ok {
			n++
		}
	}
	return n
}

// topTokens ranks a frequency table by descending count, ties broken by
// token, truncated to n entries (n <= 0 keeps all).
func topTokens(table map[string]int, n int) []types.TokenCount {
	if len(table) == 0 {
		return nil
	}
	out := make([]types.TokenCount, 0, len(table))
	for token, count := range table {
		out = append(out, types.TokenCount{Token: token, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func tail(paths []string, n int) []string {
	if n <= 0 || len(paths) <= n {
		return paths
	}
	return paths[len(paths)-n:]
}
