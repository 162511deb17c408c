// Package archive bundles category-filtered document sets into tar.gz
// files, one archive per category of interest.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Writer produces category archives in OutputDir.
type Writer struct {
	// OutputDir receives the <category>.tar.gz files. Empty means the
	// current directory.
	OutputDir string
}

// WriteCategory writes <category>.tar.gz containing the original bytes of
// every listed document under a normalized relative path. It returns the
// final archive size in bytes.
func (w *Writer) WriteCategory(category string, paths []string) (int64, error) {
	target := filepath.Join(w.OutputDir, category+".tar.gz")

	f, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", target, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, path := range paths {
		if err := addFile(tw, path); err != nil {
			tw.Close()
			gz.Close()
			return 0, err
		}
	}

	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("finishing %s: %w", target, err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("finishing %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("finishing %s: %w", target, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return 0, fmt.Errorf("sizing %s: %w", target, err)
	}
	return info.Size(), nil
}

func addFile(tw *tar.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}
	hdr.Name = normalizeName(path)

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}
	return nil
}

// normalizeName turns a document path into a safe relative archive member
// name: forward slashes, no leading slash, no parent-directory escapes.
func normalizeName(path string) string {
	name := filepath.ToSlash(filepath.Clean(path))
	name = strings.TrimPrefix(name, "/")
	for strings.HasPrefix(name, "../") {
		name = strings.TrimPrefix(name, "../")
	}
	return name
}
