// Package classify extracts content-feature flags from PDF bytes.
//
// Every predicate is a fixed byte or regex match over the qpdf-decompressed
// stream, except the encryption check, which must run on the original bytes
// because uncompressing rewrites the trailer and can drop the /Encrypt
// reference. Classification is pure: no I/O, no failure path — a pattern
// that does not match simply yields a false flag or an empty set.
package classify

import (
	"bytes"
	"regexp"

	"github.com/marco-c/pdf-finder/internal/types"
)

// Case sensitivity follows the predicate, not a uniform policy: the XML-ish
// XFA markers are case-insensitive, the PDF name objects and JavaScript
// identifiers are exact.
var (
	xfaRe           = regexp.MustCompile(`(?i)<[\r\n \t]*template[\r\n \t]+xmlns="http://www.xfa.org/schema/xfa-template/`)
	imageRe         = regexp.MustCompile(`(?i)<[\r\n \t]*image[\r\n \t]*contentType="([\w/+]+)"`)
	usedFontRe      = regexp.MustCompile(`(?i)typeface="([^"]+)"`)
	embeddedFontRe  = regexp.MustCompile(`(?i)/FontFamily \(([^)]+)\)`)
	rectangleRe     = regexp.MustCompile(`(?i)<[\r\n \t]*rectangle`)
	dynamicRenderRe = regexp.MustCompile(`(?i)<[\r\n \t]*dynamicRender[\r\n \t]*>[\r\n \t]*required`)
	hostFunctionRe  = regexp.MustCompile(`xfa\.host\.(\w+)`)
	execMenuItemRe  = regexp.MustCompile(`app\.execMenuItem[ \t]*\(([^)]*)\)`)
)

// jsClues are the markers whose presence flags a document as using
// JavaScript: the AcroForm helper function prefixes plus the /JavaScript
// name object.
var jsClues = [][]byte{
	[]byte("AFNumber_"),
	[]byte("AFSimple_"),
	[]byte("AFPercent_"),
	[]byte("AFSpecial_"),
	[]byte("AFDate_"),
	[]byte("/JavaScript"),
}

// Classify computes the feature record for one document. content is the
// decompressed stream; original is the document as read from disk.
func Classify(content, original []byte) types.FeatureRecord {
	rec := types.FeatureRecord{
		UsesXFA:        xfaRe.Match(content),
		IsTagged:       isTagged(content),
		UsesRectangles: rectangleRe.Match(content),
		IsEncrypted:    IsEncrypted(original),
		IsPureXFA:      dynamicRenderRe.Match(content),
	}

	if isJS(content) {
		rec.UsesJS = true
		rec.UsesToSource = bytes.Contains(content, []byte("toSource"))
	}

	rec.ImageContentTypes = captureSet(imageRe, content, false)
	rec.XFAHostFunctions = captureSet(hostFunctionRe, content, false)
	rec.ExecMenuItemArgs = captureSet(execMenuItemRe, content, false)

	// Referenced minus embedded, byte-exact. Font names in typeface
	// attributes occasionally carry non-ASCII garbage from corrupt
	// templates, which is stripped before the set difference.
	used := captureSet(usedFontRe, content, true)
	embedded := make(map[string]struct{})
	for _, m := range embeddedFontRe.FindAllSubmatch(content, -1) {
		embedded[string(m[1])] = struct{}{}
	}
	for _, font := range used {
		if _, ok := embedded[font]; !ok {
			rec.NonEmbeddedFonts = append(rec.NonEmbeddedFonts, font)
		}
	}

	rec.Normalize()
	return rec
}

// IsEncrypted reports whether the raw document bytes reference an
// encryption dictionary. Exported separately because it is the one check
// that must see the pre-decompression bytes.
func IsEncrypted(original []byte) bool {
	return bytes.Contains(original, []byte("/Encrypt "))
}

func isJS(content []byte) bool {
	for _, clue := range jsClues {
		if bytes.Contains(content, clue) {
			return true
		}
	}
	return false
}

func isTagged(content []byte) bool {
	return bytes.Contains(content, []byte("/MarkInfo")) &&
		bytes.Contains(content, []byte("/Marked true"))
}

// captureSet collects the distinct first-group matches of re. When
// asciiOnly is set, bytes outside the ASCII range are dropped from each
// token before de-duplication.
func captureSet(re *regexp.Regexp, content []byte, asciiOnly bool) []string {
	matches := re.FindAllSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		token := string(m[1])
		if asciiOnly {
			token = stripNonASCII(token)
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

func stripNonASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			b := make([]byte, 0, len(s))
			for j := 0; j < len(s); j++ {
				if s[j] < 0x80 {
					b = append(b, s[j])
				}
			}
			return string(b)
		}
	}
	return s
}
