package export

import (
	"encoding/json"
	"io"
)

// JSONExporter exports the catalog as one pretty-printed document
type JSONExporter struct{}

// Export exports a catalog to JSON format
func (e *JSONExporter) Export(catalog *Catalog, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(catalog)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
