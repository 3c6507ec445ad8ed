package testutil

import (
	"database/sql"
	"testing"

	"github.com/iksnae/smile-viewer/internal"
	_ "modernc.org/sqlite"
)

const smilesTableSQL = `
CREATE TABLE IF NOT EXISTS smiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT UNIQUE,
	filename TEXT UNIQUE,
	x INTEGER,
	y INTEGER,
	w INTEGER,
	h INTEGER,
	image BLOB
)`

// CreateInMemoryDB creates an in-memory SQLite database with an empty smiles
// table. The pool is pinned to one connection so every query sees the same
// database. It is closed when the test ends.
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(smilesTableSQL); err != nil {
		t.Fatalf("Failed to create smiles table: %v", err)
	}
	return db
}

// CreateTestDB creates a test database holding SampleSnapshots, oldest
// inserted first
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	records := SampleSnapshots()
	for i := len(records) - 1; i >= 0; i-- {
		InsertSmile(t, db, records[i], SampleJPEG(t))
	}
	return db
}

// InsertSmile inserts one snapshot row with a fixed smile box
func InsertSmile(t *testing.T, db *sql.DB, rec internal.SnapshotRecord, image []byte) {
	t.Helper()
	insertSQL := "INSERT INTO smiles (timestamp, filename, x, y, w, h, image) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if _, err := db.Exec(insertSQL, rec.Timestamp, rec.Filename, 120, 80, 60, 30, image); err != nil {
		t.Fatalf("Failed to insert smile %s: %v", rec.Timestamp, err)
	}
}
