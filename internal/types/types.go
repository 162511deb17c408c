// Package types holds the shared data model: the per-document feature
// record and the aggregate report produced at the end of a scan.
package types

import (
	"fmt"
	"sort"
)

// FeatureRecord captures the content features extracted from a single PDF.
// It is the unit of caching and aggregation: one record per document,
// computed once and memoized in a sidecar file next to the PDF.
type FeatureRecord struct {
	// UsesXFA is true when the document embeds an XFA form template.
	UsesXFA bool `json:"xfa"`

	// UsesJS is true when the document contains JavaScript (either the
	// /JavaScript name or one of the AcroForm helper function prefixes).
	UsesJS bool `json:"js"`

	// UsesToSource is true when the document's JavaScript calls toSource.
	// Only ever set when UsesJS is set.
	UsesToSource bool `json:"to_source"`

	// IsTagged is true when the document carries structural/accessibility
	// tags (/MarkInfo with /Marked true).
	IsTagged bool `json:"tagged"`

	// UsesRectangles is true when the XFA template draws rectangles.
	UsesRectangles bool `json:"rectangles"`

	// IsEncrypted is true when the original (pre-decompression) bytes
	// contain an encryption dictionary.
	IsEncrypted bool `json:"encrypted"`

	// IsPureXFA is true when the document requires the dynamic XFA render
	// path and has no static fallback.
	IsPureXFA bool `json:"pure_xfa"`

	// ImageContentTypes lists the distinct contentType tokens of images
	// embedded in the XFA template.
	ImageContentTypes []string `json:"image_content_types,omitempty"`

	// NonEmbeddedFonts lists font families referenced by the document but
	// not matched by any embedded /FontFamily declaration.
	NonEmbeddedFonts []string `json:"non_embedded_fonts,omitempty"`

	// XFAHostFunctions lists the distinct xfa.host.* functions invoked by
	// the document's scripts.
	XFAHostFunctions []string `json:"xfa_host_functions,omitempty"`

	// ExecMenuItemArgs lists the distinct literal argument expressions
	// passed to app.execMenuItem calls.
	ExecMenuItemArgs []string `json:"exec_menu_item_args,omitempty"`
}

// Normalize sorts and de-duplicates the set-valued fields so that records
// compare stably regardless of extraction order.
func (r *FeatureRecord) Normalize() {
	r.ImageContentTypes = sortedSet(r.ImageContentTypes)
	r.NonEmbeddedFonts = sortedSet(r.NonEmbeddedFonts)
	r.XFAHostFunctions = sortedSet(r.XFAHostFunctions)
	r.ExecMenuItemArgs = sortedSet(r.ExecMenuItemArgs)
}

// Validate checks the record's internal consistency.
func (r *FeatureRecord) Validate() error {
	if r.UsesToSource && !r.UsesJS {
		return fmt.Errorf("to_source set without js")
	}
	return nil
}

func sortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// TokenCount is one row of a frequency ranking: a token and the number of
// documents it appeared in.
type TokenCount struct {
	Token string
	Count int
}

// Report is the finalized output of a scan run, read exactly once after all
// workers have finished.
type Report struct {
	// TotalScanned is the number of documents that produced a record
	// (cache hits plus fresh classifications; decompression failures are
	// excluded).
	TotalScanned int

	// SkippedDocuments counts documents dropped because the external
	// decompression tool failed on them.
	SkippedDocuments int

	// Membership lists, in completion order.
	XFA        []string
	JS         []string
	ToSource   []string
	Tagged     []string
	Rectangles []string
	Encrypted  []string
	PureXFA    []string

	// XFAAndJS is the size of the XFA ∩ JS intersection.
	XFAAndJS int

	// Top-N frequency rankings, highest count first, ties broken by token.
	TopImageTypes       []TokenCount
	TopNonEmbeddedFonts []TokenCount
	TopHostFunctions    []TokenCount
	TopExecMenuItemArgs []TokenCount

	// Export selections for the filtered archives.
	Exports map[string][]string
}
