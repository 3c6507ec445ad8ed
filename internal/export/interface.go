package export

import (
	"fmt"
	"io"

	"github.com/iksnae/smile-viewer/internal"
)

// Catalog is the snapshot list of one service
type Catalog struct {
	Source    string                    `json:"source" yaml:"source"`
	Snapshots []internal.SnapshotRecord `json:"snapshots" yaml:"snapshots"`
}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(catalog *Catalog, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}
