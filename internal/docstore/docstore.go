// Package docstore keeps exemplar documents per collection and answers
// nearest-neighbour queries restricted by metadata.
package docstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/spigell/rubric-evaluator/internal/ai"
)

// Metadata keys of exemplar documents.
const (
	MetaQuestionID      = "question_id"
	MetaLabel           = "label"
	MetaLinkedCriterion = "linked_criterion"
)

// Document is an indexed text with string metadata. Score is set on query results.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score,omitempty"`
}

// Filter keeps documents whose metadata has every listed key with the given value.
type Filter map[string]string

// Matches reports whether metadata satisfies the filter.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, v := range f {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// Store is a document store with replace-all writes per collection.
type Store interface {
	// UpsertCorpus replaces the whole collection with docs.
	UpsertCorpus(ctx context.Context, collection string, docs []Document) error
	// QueryNearest returns up to k documents most similar to query.
	QueryNearest(ctx context.Context, collection, query string, k int, filter Filter) ([]Document, error)
	Close() error
}

type embedded struct {
	doc    Document
	vector []float32
}

func embedDocuments(ctx context.Context, embedder ai.Embedder, docs []Document) ([]embedded, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	out := make([]embedded, len(docs))
	for i := range docs {
		out[i] = embedded{doc: docs[i], vector: vectors[i]}
	}
	return out, nil
}

// rank scores candidates against the query vector and keeps the best k.
// Ties are broken by document id so results are stable.
func rank(query []float32, candidates []embedded, k int, filter Filter) []Document {
	var results []Document
	for _, c := range candidates {
		if !filter.Matches(c.doc.Metadata) {
			continue
		}
		doc := c.doc
		doc.Score = ai.CosineSimilarity(query, c.vector)
		results = append(results, doc)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
