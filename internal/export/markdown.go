package export

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/iksnae/smile-viewer/internal"
)

// MarkdownExporter exports the catalog as a Markdown table
type MarkdownExporter struct{}

// Export exports a catalog to Markdown format
func (e *MarkdownExporter) Export(catalog *Catalog, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Past Smiles\n\n")

	if catalog.Source != "" {
		_, _ = fmt.Fprintf(w, "**Source:** %s  \n", catalog.Source)
	}
	_, _ = fmt.Fprintf(w, "**Snapshots:** %d\n\n", len(catalog.Snapshots))

	if len(catalog.Snapshots) == 0 {
		_, _ = fmt.Fprintf(w, "_No smiles saved yet._\n")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| Timestamp | Image |\n")
	_, _ = fmt.Fprintf(w, "|---|---|\n")
	for _, rec := range catalog.Snapshots {
		_, _ = fmt.Fprintf(w, "| %s | %s |\n", escapeCell(rec.Timestamp), imageCell(catalog.Source, rec.Filename))
	}

	return nil
}

// imageCell links the filename to its image when the source is known
func imageCell(source, filename string) string {
	name := escapeCell(filename)
	if source == "" {
		return name
	}
	link := strings.TrimRight(source, "/") + internal.PathGetImage + url.PathEscape(filename)
	return fmt.Sprintf("[%s](%s)", name, link)
}

// escapeCell keeps table cells on one line and escapes column separators
func escapeCell(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "|", "\\|")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
