package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/spigell/rubric-evaluator/internal/ai"
)

// SQLiteStore persists collections and their embeddings in a SQLite file.
// Queries are brute-force over one collection, which stays small per rubric.
type SQLiteStore struct {
	db       *sql.DB
	embedder ai.Embedder
	mu       sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, embedder ai.Embedder) (*SQLiteStore, error) {
	if path = strings.TrimSpace(path); path == "" {
		return nil, fmt.Errorf("sqlite store path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db, embedder: embedder}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertCorpus embeds docs and swaps them in for the collection in one transaction.
func (s *SQLiteStore) UpsertCorpus(ctx context.Context, collection string, docs []Document) error {
	entries, err := embedDocuments(ctx, s.embedder, docs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("clearing collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO documents (collection, id, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		metadataJSON, err := json.Marshal(e.doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		embeddingJSON, err := json.Marshal(e.vector)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, e.doc.ID, e.doc.Text, metadataJSON, embeddingJSON); err != nil {
			return fmt.Errorf("inserting document %s: %w", e.doc.ID, err)
		}
	}

	return tx.Commit()
}

// QueryNearest ranks the collection's documents by cosine similarity to query.
func (s *SQLiteStore) QueryNearest(ctx context.Context, collection, query string, k int, filter Filter) ([]Document, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	candidates, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return rank(vector, candidates, k, filter), nil
}

func (s *SQLiteStore) load(ctx context.Context, collection string) ([]embedded, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding
		FROM documents
		WHERE collection = ?
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []embedded
	for rows.Next() {
		var (
			e             embedded
			metadataJSON  []byte
			embeddingJSON []byte
		)
		if err := rows.Scan(&e.doc.ID, &e.doc.Text, &metadataJSON, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &e.doc.Metadata); err != nil {
			continue // Skip corrupted rows
		}
		if err := json.Unmarshal(embeddingJSON, &e.vector); err != nil {
			continue
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// Count returns the number of documents in a collection.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
