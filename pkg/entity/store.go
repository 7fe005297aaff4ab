// Package entity provides the one generic data store behind the
// assistant's CRUD tools. Notes, appointments and calendar events are all
// records of a kind with a JSON payload; each tool is just a schema and a
// thin adapter over this contract.
package entity

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one stored entity.
type Record struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = fmt.Errorf("entity: not found")

// Store is a SQLite-backed entity store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the entity database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS entities (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			data       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind, created_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new record of the given kind.
func (s *Store) Create(kind string, data map[string]any) (Record, error) {
	now := time.Now()
	rec := Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("encode data: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO entities (id, kind, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, kind, string(payload), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Record{}, fmt.Errorf("insert %s: %w", kind, err)
	}
	return rec, nil
}

// Get retrieves one record by kind and id.
func (s *Store) Get(kind, id string) (Record, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, data, created_at, updated_at
		FROM entities
		WHERE kind = ? AND id = ?
	`, kind, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// Update replaces a record's data.
func (s *Store) Update(kind, id string, data map[string]any) (Record, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("encode data: %w", err)
	}

	now := time.Now()
	res, err := s.db.Exec(`
		UPDATE entities SET data = ?, updated_at = ?
		WHERE kind = ? AND id = ?
	`, string(payload), now.UnixMilli(), kind, id)
	if err != nil {
		return Record{}, fmt.Errorf("update %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Record{}, ErrNotFound
	}
	return s.Get(kind, id)
}

// Delete removes a record.
func (s *Store) Delete(kind, id string) error {
	res, err := s.db.Exec(`DELETE FROM entities WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all records of a kind, oldest first.
func (s *Store) List(kind string) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, data, created_at, updated_at
		FROM entities
		WHERE kind = ?
		ORDER BY created_at ASC, rowid ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var payload string
	var createdAt, updatedAt int64
	if err := row.Scan(&rec.ID, &rec.Kind, &payload, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
		return Record{}, fmt.Errorf("decode data: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.UpdatedAt = time.UnixMilli(updatedAt)
	return rec, nil
}
