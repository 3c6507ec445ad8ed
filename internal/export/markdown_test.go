package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/smile-viewer/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		catalog *Catalog
		want    []string
		notWant []string
	}{
		{
			name:    "catalog with source",
			catalog: sampleCatalog(),
			want: []string{
				"# Past Smiles",
				"**Source:** http://127.0.0.1:5000",
				"**Snapshots:** 3",
				"| Timestamp | Image |",
				"| 2024-05-01 10:10:00.250 | [smile_20240501_101000_250.jpg](http://127.0.0.1:5000/get-image/smile_20240501_101000_250.jpg) |",
			},
		},
		{
			name: "catalog without source",
			catalog: &Catalog{Snapshots: []internal.SnapshotRecord{
				{Timestamp: "T1", Filename: "f1.jpg"},
			}},
			want:    []string{"| T1 | f1.jpg |"},
			notWant: []string{"**Source:**", "]("},
		},
		{
			name:    "empty catalog",
			catalog: &Catalog{Source: "http://cam"},
			want:    []string{"**Snapshots:** 0", "_No smiles saved yet._"},
			notWant: []string{"| Timestamp |"},
		},
		{
			name: "cells are escaped",
			catalog: &Catalog{Snapshots: []internal.SnapshotRecord{
				{Timestamp: "a|b", Filename: "x\ny.jpg"},
			}},
			want: []string{"| a\\|b | x y.jpg |"},
		},
		{
			name: "links escape filenames",
			catalog: &Catalog{Source: "http://cam/", Snapshots: []internal.SnapshotRecord{
				{Timestamp: "T1", Filename: "my smile.jpg"},
			}},
			want: []string{"(http://cam/get-image/my%20smile.jpg)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &MarkdownExporter{}

			if err := exporter.Export(tt.catalog, &buf); err != nil {
				t.Fatalf("MarkdownExporter.Export() error = %v", err)
			}

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("Output should contain %q\nOutput:\n%s", want, output)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(output, notWant) {
					t.Errorf("Output should not contain %q", notWant)
				}
			}
		})
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	exporter := &MarkdownExporter{}
	if got := exporter.Extension(); got != "md" {
		t.Errorf("MarkdownExporter.Extension() = %v, want md", got)
	}
}
