package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/smile-viewer/internal"
	"github.com/iksnae/smile-viewer/internal/export"
	"github.com/iksnae/smile-viewer/internal/stub"
	"github.com/iksnae/smile-viewer/testutil"
	"gopkg.in/yaml.v3"
)

func TestExportCommand(t *testing.T) {
	_, url := startStub(t, stub.DefaultConfig())
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		file    string
		want    []string
		wantErr bool
	}{
		{
			name:    "invalid format",
			args:    []string{"export", "--format", "invalid"},
			wantErr: true,
		},
		{
			name: "markdown file",
			args: []string{"export", "--format", "md", "-o", filepath.Join(dir, "smiles.md")},
			file: filepath.Join(dir, "smiles.md"),
			want: []string{"# Past Smiles", "**Snapshots:** 3", url + "/get-image/smile_20240501_101000_250.jpg"},
		},
		{
			name: "yaml file",
			args: []string{"export", "-f", "yaml", "-o", filepath.Join(dir, "smiles.yaml")},
			file: filepath.Join(dir, "smiles.yaml"),
			want: []string{"source:", "snapshots:", "smile_20240501_100500_125.jpg"},
		},
		{
			name: "jsonl file",
			args: []string{"export", "-o", filepath.Join(dir, "smiles.jsonl")},
			file: filepath.Join(dir, "smiles.jsonl"),
			want: []string{`"filename":"smile_20240501_100500_125.jpg"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, append([]string{"--base-url", url}, tt.args...)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("export error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			data, err := os.ReadFile(tt.file)
			if err != nil {
				t.Fatalf("export file missing: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(string(data), want) {
					t.Errorf("%s should contain %q, got:\n%s", tt.file, want, data)
				}
			}
		})
	}
}

func TestExportCommand_YAMLRoundTrip(t *testing.T) {
	_, url := startStub(t, stub.DefaultConfig())
	path := filepath.Join(t.TempDir(), "smiles.yml")

	if _, err := runCommand(t, "--base-url", url, "export", "-f", "yml", "-o", path); err != nil {
		t.Fatalf("export error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	var catalog export.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		t.Fatalf("export is not valid YAML: %v\n%s", err, data)
	}
	if catalog.Source != url {
		t.Errorf("Source = %q, want %q", catalog.Source, url)
	}
	want := testutil.SampleSnapshots()
	if len(catalog.Snapshots) != len(want) {
		t.Fatalf("exported %d snapshots, want %d", len(catalog.Snapshots), len(want))
	}
	for i := range want {
		if catalog.Snapshots[i] != want[i] {
			t.Errorf("snapshot %d = %+v, want %+v", i, catalog.Snapshots[i], want[i])
		}
	}
}

func TestExportCommand_Stdout(t *testing.T) {
	_, url := startStub(t, stub.DefaultConfig())

	out, err := runCommand(t, "--base-url", url, "export", "--format", "json", "-o", "-")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}

	var catalog export.Catalog
	testutil.JSONUnmarshal(t, []byte(out), &catalog)
	if catalog.Source != url {
		t.Errorf("Source = %q, want %q", catalog.Source, url)
	}
	if len(catalog.Snapshots) != len(testutil.SampleSnapshots()) {
		t.Errorf("exported %d snapshots, want %d", len(catalog.Snapshots), len(testutil.SampleSnapshots()))
	}
	if !json.Valid([]byte(out)) {
		t.Error("stdout is not valid JSON")
	}
}

func TestExportCommand_UnwritablePath(t *testing.T) {
	_, url := startStub(t, stub.DefaultConfig())

	_, err := runCommand(t, "--base-url", url, "export", "-o", filepath.Join(t.TempDir(), "missing", "smiles.jsonl"))
	var exportErr *internal.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("error = %v, want *internal.ExportError", err)
	}
	if exportErr.Format != "jsonl" {
		t.Errorf("ExportError.Format = %q, want jsonl", exportErr.Format)
	}
}
