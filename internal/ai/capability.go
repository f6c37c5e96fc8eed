package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BatchGenerator answers several prompts at once. The output has exactly one
// entry per prompt, in the same order.
type BatchGenerator interface {
	Generator
	GenerateBatch(ctx context.Context, prompts []string) ([]string, error)
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Similarity scores how close two short texts are, in [0,1].
type Similarity interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Sequential adapts a Generator into a BatchGenerator that calls it once per prompt.
func Sequential(g Generator) BatchGenerator {
	if bg, ok := g.(BatchGenerator); ok {
		return bg
	}
	return sequential{g}
}

type sequential struct {
	Generator
}

func (s sequential) GenerateBatch(ctx context.Context, prompts []string) ([]string, error) {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		text, err := s.Generate(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("prompt %d of %d: %w", i+1, len(prompts), err)
		}
		out[i] = text
	}
	return out, nil
}

// EmbeddingSimilarity implements Similarity with cosine similarity over embeddings.
type EmbeddingSimilarity struct {
	embedder Embedder
}

func NewEmbeddingSimilarity(embedder Embedder) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{embedder: embedder}
}

// Similarity returns 0 without calling the embedder when either text is blank.
// Negative cosine values are clamped to 0.
func (s *EmbeddingSimilarity) Similarity(ctx context.Context, a, b string) (float64, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{a, b})
	if err != nil {
		return 0, fmt.Errorf("embed texts for similarity: %w", err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("embedder returned %d vectors, expected 2", len(vectors))
	}

	return math.Max(0, CosineSimilarity(vectors[0], vectors[1])), nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the vectors differ in length or either is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
