// README: Atomic JSON export of run results.
package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteOrdersJSON writes the order export to path atomically.
func (r Result) WriteOrdersJSON(path string) error {
	return writeJSONAtomic(path, r.Orders)
}

// WriteFleetJSON writes the fleet export to path atomically.
func (r Result) WriteFleetJSON(path string) error {
	return writeJSONAtomic(path, r.Fleet)
}

// writeJSONAtomic marshals v into a temp file in the target directory and
// renames it over path, so readers never observe a partial export.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", tmpName, err)
	}
	return nil
}
