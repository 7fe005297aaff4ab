package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConversationKey is the fixed key the assistant's single conversation is
// stored under.
const ConversationKey = "conversation"

// Store persists transcript logs keyed by conversation. The log is
// overwritten on every turn completion and read back once at connect time
// to seed conversation continuity.
type Store interface {
	// Save persists the log for the given conversation key.
	Save(key string, log Log) error

	// Load retrieves the stored log. A never-saved key yields an empty
	// log, not an error.
	Load(key string) (Log, error)

	// Close releases any resources held by the store.
	Close() error
}

// document is the serialized form, versioned for forward compatibility.
type document struct {
	Version int `json:"version"`
	Entries Log `json:"entries"`
}

const documentVersion = 1

// JSONStore implements Store with one JSON file per conversation key.
type JSONStore struct {
	Dir string
}

// NewJSONStore creates a file store rooted at dir.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{Dir: dir}
}

func (s *JSONStore) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

// Save writes the log, creating the directory as needed.
func (s *JSONStore) Save(key string, log Log) error {
	if s.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(document{Version: documentVersion, Entries: log}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Load reads the log back. A missing file is an empty conversation.
func (s *JSONStore) Load(key string) (Log, error) {
	if s.Dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return doc.Entries, nil
}

// Close is a no-op for JSON files.
func (s *JSONStore) Close() error {
	return nil
}

var _ Store = (*JSONStore)(nil)
