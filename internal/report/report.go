// Package report renders the end-of-run summary.
package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/marco-c/pdf-finder/internal/types"
)

// Print writes the human-readable summary: per-category totals, the XFA∩JS
// intersection, and the frequency rankings.
func Print(w io.Writer, rep types.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "%s\n\n", cyan("=== PDF corpus scan ==="))
	fmt.Fprintf(w, "Scanned %d PDFs", rep.TotalScanned)
	if rep.SkippedDocuments > 0 {
		fmt.Fprintf(w, " (%d skipped on decompression errors)", rep.SkippedDocuments)
	}
	fmt.Fprintf(w, "\n\n")

	fmt.Fprintf(w, "Found %d PDFs that use XFA\n", len(rep.XFA))
	fmt.Fprintf(w, "Found %d PDFs that use JavaScript\n", len(rep.JS))
	fmt.Fprintf(w, "Found %d PDFs that use XFA and JavaScript\n", rep.XFAAndJS)
	fmt.Fprintf(w, "Found %d PDFs that use toSource\n", len(rep.ToSource))
	fmt.Fprintf(w, "Found %d PDFs that have tags\n", len(rep.Tagged))
	fmt.Fprintf(w, "Found %d PDFs that use rectangles\n", len(rep.Rectangles))
	fmt.Fprintf(w, "Found %d encrypted PDFs\n", len(rep.Encrypted))
	fmt.Fprintf(w, "Found %d pure XFA PDFs\n", len(rep.PureXFA))

	printRanking(w, yellow("Most common image types:"), rep.TopImageTypes)
	printRanking(w, yellow("Most common used fonts that are not embedded:"), rep.TopNonEmbeddedFonts)
	printRanking(w, yellow("Most common xfa.host functions:"), rep.TopHostFunctions)
	printRanking(w, yellow("Most common execMenuItem arguments:"), rep.TopExecMenuItemArgs)
}

// PrintArchive reports one written export archive.
func PrintArchive(w io.Writer, category string, docs int, size int64) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "%s wrote %s.tar.gz (%d PDFs, %s)\n",
		green("✓"), category, docs, humanize.Bytes(uint64(size)))
}

func printRanking(w io.Writer, header string, rows []types.TokenCount) {
	fmt.Fprintf(w, "\n%s\n", header)
	if len(rows) == 0 {
		fmt.Fprintf(w, "  (none)\n")
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %6d  %s\n", row.Count, row.Token)
	}
}
