package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/martinsuchenak/subnetplan/internal/config"
)

// Store persists allocation runs.
type Store interface {
	// Latest returns the most recent run, or nil when none has been saved.
	Latest() (Document, error)
	// Save records a run and returns its id. Backends without run history
	// return an empty id.
	Save(doc Document) (string, error)
	Close() error
}

// RunInfo describes one stored run.
type RunInfo struct {
	ID        string
	CreatedAt time.Time
	Entries   int
}

// HistoryStore is implemented by backends that keep every run, not just the
// latest one.
type HistoryStore interface {
	Runs() ([]RunInfo, error)
	GetRun(id string) (Document, error)
}

// Open creates the store selected by the configuration.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.SnapshotBackend {
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.DataDir)
	case config.BackendFile:
		return NewFileStore(filepath.Join(cfg.DataDir, "allocations.json")), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s", cfg.SnapshotBackend)
	}
}

// FileStore keeps the latest run as a single JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Latest() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return Decode(data)
}

func (s *FileStore) Save(doc Document) (string, error) {
	data, err := Encode(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return "", nil
}

func (s *FileStore) Close() error { return nil }

// LoadFile reads a run document from an arbitrary JSON file.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode renders a document in the canonical indented form. Map keys are
// sorted by the encoder, so equal runs produce byte-equal output.
func Encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a document from its JSON form.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return doc, nil
}
