package ai

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.vectors[text]
	}
	return out, nil
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Fatalf("expected 0 for length mismatch, got %v", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 2}); got != 0 {
		t.Fatalf("expected 0 for zero vector, got %v", got)
	}
}

func TestEmbeddingSimilarity(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{vectors: map[string][]float32{
		"Backend Developer": {1, 1},
		"Server Engineer":   {1, 0.9},
		"Chef":              {-1, -1},
	}}
	sim := NewEmbeddingSimilarity(emb)

	near, err := sim.Similarity(context.Background(), "Backend Developer", "Server Engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if near < 0.9 {
		t.Fatalf("expected high similarity, got %v", near)
	}

	opposite, err := sim.Similarity(context.Background(), "Backend Developer", "Chef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opposite != 0 {
		t.Fatalf("expected negative cosine clamped to 0, got %v", opposite)
	}

	calls := emb.calls
	blank, err := sim.Similarity(context.Background(), "  ", "Chef")
	if err != nil || blank != 0 {
		t.Fatalf("expected 0 without error for blank text, got %v / %v", blank, err)
	}
	if emb.calls != calls {
		t.Fatal("embedder must not be called for blank text")
	}
}

func TestEmbeddingSimilarityPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("embedding service down")
	sim := NewEmbeddingSimilarity(&stubEmbedder{err: boom})
	if _, err := sim.Similarity(context.Background(), "a", "b"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

type echoGenerator struct {
	fail string
}

func (e echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if prompt == e.fail {
		return "", errors.New("generation failed")
	}
	return "echo: " + prompt, nil
}

func TestSequentialPreservesOrder(t *testing.T) {
	t.Parallel()

	out, err := Sequential(echoGenerator{}).GenerateBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"echo: a", "echo: b", "echo: c"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], out[i])
		}
	}

	if _, err := Sequential(echoGenerator{fail: "b"}).GenerateBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error to propagate")
	}
}
