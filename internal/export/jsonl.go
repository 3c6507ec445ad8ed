package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONLExporter writes one snapshot record per line
type JSONLExporter struct{}

// Export exports a catalog to JSONL format
func (e *JSONLExporter) Export(catalog *Catalog, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, rec := range catalog.Snapshots {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode snapshot %s: %w", rec.Timestamp, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
