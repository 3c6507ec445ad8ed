package stub

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iksnae/smile-viewer/internal"
	_ "modernc.org/sqlite"
)

// ErrImageNotFound is returned by Store.Image for unknown filenames
var ErrImageNotFound = errors.New("image not found")

const schema = `
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

// Snapshot is one saved smile
type Snapshot struct {
	Timestamp string
	Filename  string
	X, Y      int
	W, H      int
	Image     []byte
}

// Store keeps snapshots in the smiles table
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) a sqlite snapshot database. ":memory:" gives a
// private in-memory store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// in-memory databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database, creating the smiles table if needed
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create smiles table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert saves a snapshot
func (s *Store) Insert(ctx context.Context, snap Snapshot) error {
	const q = "INSERT INTO smiles (timestamp, filename, x, y, w, h, image) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, q, snap.Timestamp, snap.Filename, snap.X, snap.Y, snap.W, snap.H, snap.Image); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

// List returns every snapshot record, newest first
func (s *Store) List(ctx context.Context) ([]internal.SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT timestamp, filename FROM smiles ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	records := []internal.SnapshotRecord{}
	for rows.Next() {
		var rec internal.SnapshotRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Filename); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

// Image returns the stored bytes for filename
func (s *Store) Image(ctx context.Context, filename string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT image FROM smiles WHERE filename = ?", filename).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return data, nil
}

// Count returns the number of stored snapshots
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM smiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}
