package docstore

import (
	"context"
	"strings"
	"sync"

	"github.com/spigell/rubric-evaluator/internal/ai"
)

// MemoryStore keeps collections in process memory.
type MemoryStore struct {
	embedder ai.Embedder

	mu          sync.RWMutex
	collections map[string][]embedded
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder ai.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:    embedder,
		collections: make(map[string][]embedded),
	}
}

// UpsertCorpus replaces the collection with docs.
func (s *MemoryStore) UpsertCorpus(ctx context.Context, collection string, docs []Document) error {
	entries, err := embedDocuments(ctx, s.embedder, docs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		delete(s.collections, collection)
		return nil
	}
	s.collections[collection] = entries
	return nil
}

// QueryNearest ranks the collection's documents by cosine similarity to query.
func (s *MemoryStore) QueryNearest(ctx context.Context, collection, query string, k int, filter Filter) ([]Document, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	s.mu.RLock()
	candidates := s.collections[collection]
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return rank(vector, candidates, k, filter), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
