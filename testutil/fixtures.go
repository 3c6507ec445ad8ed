package testutil

import (
	"bytes"
	"database/sql"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/smile-viewer/internal"
	_ "modernc.org/sqlite"
)

// SampleSnapshots returns three records in server order, newest first
func SampleSnapshots() []internal.SnapshotRecord {
	return []internal.SnapshotRecord{
		{Timestamp: "2024-05-01 10:10:00.250", Filename: "smile_20240501_101000_250.jpg"},
		{Timestamp: "2024-05-01 10:05:00.125", Filename: "smile_20240501_100500_125.jpg"},
		{Timestamp: "2024-05-01 10:00:00.000", Filename: "smile_20240501_100000_000.jpg"},
	}
}

// SampleJPEG returns a small solid-colour JPEG
func SampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 160, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// CreateSQLiteFixture writes a snapshot database file holding SampleSnapshots
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(smilesTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	records := SampleSnapshots()
	for i := len(records) - 1; i >= 0; i-- {
		InsertSmile(t, db, records[i], SampleJPEG(t))
	}
}
