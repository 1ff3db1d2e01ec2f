package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore implements DocumentStore on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &SQLiteStore{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("document store ready", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		stable_ref TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind);
	CREATE INDEX IF NOT EXISTS idx_documents_stable_ref ON documents(stable_ref);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Create inserts a new document and returns its id and stable reference.
func (s *SQLiteStore) Create(ctx context.Context, kind string, data map[string]interface{}) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal document data: %w", err)
	}
	id := uuid.NewString()
	stableRef := fmt.Sprintf("Document.%s.%s", kind, id)
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, kind, stable_ref, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, stableRef, string(raw), now, now)
	if err != nil {
		return "", "", fmt.Errorf("failed to create document: %w", err)
	}
	s.logger.Debug("document created",
		zap.String("id", id),
		zap.String("kind", kind),
		zap.String("stableRef", stableRef))
	return id, stableRef, nil
}

// Update merges the partial data into the stored document field by field, as
// a single write.
func (s *SQLiteStore) Update(ctx context.Context, id string, partial map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("document %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", id, err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return fmt.Errorf("stored document %s is corrupt: %w", id, err)
	}
	for k, v := range partial {
		data[k] = v
	}
	merged, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal merged data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE id = ?`,
		string(merged), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s not found", id)
	}
	return nil
}

// Get loads one document by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc Document
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, stable_ref, data FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Kind, &doc.StableReference, &raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(raw), &doc.Data); err != nil {
		return nil, fmt.Errorf("stored document %s is corrupt: %w", id, err)
	}
	return &doc, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
