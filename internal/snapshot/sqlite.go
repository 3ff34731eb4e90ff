package snapshot

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore keeps every run, newest first.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the run database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "runs.db")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ss := &SQLiteStore{
		db:   db,
		path: dbPath,
	}

	if err := ss.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return ss, nil
}

func (ss *SQLiteStore) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	_, err = ss.db.Exec(string(schema))
	return err
}

// Close closes the database connection
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}

// Save stores a run and returns its id.
func (ss *SQLiteStore) Save(doc Document) (string, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	data, err := Encode(doc)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = ss.db.Exec(
		`INSERT INTO runs (id, created_at, entries, document) VALUES (?, ?, ?, ?)`,
		id, time.Now().UTC(), doc.Count(), string(data),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// Latest returns the most recent run, or nil when none exists.
func (ss *SQLiteStore) Latest() (Document, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var data string
	err := ss.db.QueryRow(
		`SELECT document FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return Decode([]byte(data))
}

// Runs lists stored runs, newest first.
func (ss *SQLiteStore) Runs() ([]RunInfo, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rows, err := ss.db.Query(
		`SELECT id, created_at, entries FROM runs ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Entries); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a stored run by id.
func (ss *SQLiteStore) GetRun(id string) (Document, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var data string
	err := ss.db.QueryRow(`SELECT document FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return Decode([]byte(data))
}
