package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter exports the catalog in YAML format
type YAMLExporter struct{}

// Export exports a catalog to YAML format
func (e *YAMLExporter) Export(catalog *Catalog, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(catalog)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
