package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Embedder produces semantic-similarity embeddings with a Gemini embedding model.
type Embedder struct {
	resolve    modelsResolver
	model      string
	maxRetries int
	logger     *zap.Logger
}

// Embed generates an embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// maxEmbedBatch is the most contents the Gemini API accepts in one request.
const maxEmbedBatch = 100

// EmbedBatch generates one embedding per text, in order. Texts are sent in
// requests of at most maxEmbedBatch contents.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e == nil || e.resolve == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	api, err := e.resolve(ctx)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		chunk := texts[start:min(start+maxEmbedBatch, len(texts))]
		embedded, err := e.embedChunk(ctx, api, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, start+len(chunk)-1, err)
		}
		vectors = append(vectors, embedded...)
	}

	e.logger.Debug("gemini embed content", zap.Int("texts", len(texts)))

	return vectors, nil
}

func (e *Embedder) embedChunk(ctx context.Context, api modelsAPI, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var result *genai.EmbedContentResponse
	err := withRetries(ctx, e.logger, e.maxRetries, func() error {
		var err error
		result, err = api.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType: similarityEmbeddingTask,
		})
		if err != nil {
			return fmt.Errorf("embed content: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", embeddingCount(result), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini api returned empty embedding at %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func embeddingCount(resp *genai.EmbedContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}
