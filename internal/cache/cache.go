// Package cache memoizes feature records in JSON sidecar files stored next
// to the documents they describe. A document at dir/name.pdf gets its
// sidecar at dir/name___TYPES___.json; the sidecar is written once, on the
// first successful classification, and reread on every later run.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marco-c/pdf-finder/internal/types"
)

// SchemaVersion tags every sidecar. Entries written under an older schema
// decode as a miss, forcing recomputation, so adding record fields never
// silently under-reports them.
const SchemaVersion = 2

// ErrMiss is returned by Load when no usable sidecar exists: the file is
// absent, fails to decode, or carries a different schema version. A miss is
// the normal cold-cache outcome, never a fault.
var ErrMiss = errors.New("cache miss")

const sidecarSuffix = "___TYPES___.json"

type sidecar struct {
	Version int `json:"version"`
	types.FeatureRecord
}

// Store loads and saves feature records for documents. The zero value is
// ready to use.
type Store struct{}

// SidecarPath returns the cache file location for a document path.
func SidecarPath(docPath string) string {
	base := strings.TrimSuffix(docPath, filepath.Ext(docPath))
	return base + sidecarSuffix
}

// Load reads the cached record for the document at docPath. It returns
// ErrMiss when the sidecar is absent, corrupt, or from another schema
// version; any other error is a real I/O fault and is fatal to the run.
func (s *Store) Load(docPath string) (types.FeatureRecord, error) {
	data, err := os.ReadFile(SidecarPath(docPath))
	if err != nil {
		if os.IsNotExist(err) {
			return types.FeatureRecord{}, ErrMiss
		}
		return types.FeatureRecord{}, fmt.Errorf("reading sidecar for %s: %w", docPath, err)
	}

	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		// Corrupt sidecar: treat as a miss and let the caller recompute
		// and overwrite it.
		return types.FeatureRecord{}, ErrMiss
	}
	if sc.Version != SchemaVersion {
		return types.FeatureRecord{}, ErrMiss
	}
	return sc.FeatureRecord, nil
}

// Save persists the record for docPath. The sidecar is written to a
// temporary file in the same directory and renamed into place, so a
// concurrent Load sees either the old complete entry or the new one, never
// a partial write.
func (s *Store) Save(docPath string, rec types.FeatureRecord) error {
	data, err := json.Marshal(sidecar{Version: SchemaVersion, FeatureRecord: rec})
	if err != nil {
		return fmt.Errorf("encoding sidecar for %s: %w", docPath, err)
	}

	target := SidecarPath(docPath)
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating sidecar temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing sidecar for %s: %w", docPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing sidecar for %s: %w", docPath, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing sidecar for %s: %w", docPath, err)
	}
	return nil
}

// Remove deletes the sidecar for docPath if one exists. Used by cache
// maintenance; a missing sidecar is not an error.
func (s *Store) Remove(docPath string) error {
	err := os.Remove(SidecarPath(docPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing sidecar for %s: %w", docPath, err)
	}
	return nil
}
