// Package discover enumerates the PDF corpus on disk.
package discover

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Find walks each root recursively and returns every file path ending in
// .pdf. Order follows the walk and is not part of the contract. Any
// traversal error aborts the enumeration: a corpus that cannot be listed
// cannot be reported on as if complete.
func Find(roots []string) ([]string, error) {
	var paths []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.HasSuffix(d.Name(), ".pdf") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return paths, nil
}
