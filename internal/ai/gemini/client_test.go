package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResponse
	prompts []string

	embedCalls  int
	embedSizes  []int
	embedded    int
	embedConfig *genai.EmbedContentConfig
	embedErr    error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next.resp, next.err
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	f.embedSizes = append(f.embedSizes, len(contents))
	f.embedConfig = config
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	resp := &genai.EmbedContentResponse{}
	for range contents {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: []float32{float32(f.embedded), 1}})
		f.embedded++
	}
	return resp, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(models *fakeModels, retries int) *Generator {
	return &Generator{
		resolve:    func(context.Context) (modelsAPI, error) { return models, nil },
		model:      "gemini-test",
		maxRetries: retries,
		maxLogLen:  defaultMaxLogLength,
		logger:     zap.NewNop(),
	}
}

func noWait(t *testing.T) {
	t.Helper()
	original := waitFor
	waitFor = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { waitFor = original })
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	output, err := newTestGenerator(models, 2).Generate(context.Background(), "extract a sentence")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.prompts) != 2 || models.prompts[1] != "extract a sentence" {
		t.Fatalf("unexpected prompts: %+v", models.prompts)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	if _, err := newTestGenerator(models, 2).Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.prompts) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.prompts))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	if _, err := newTestGenerator(models, 3).Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.prompts) != 1 {
		t.Fatalf("expected single call, got %d", len(models.prompts))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	if _, err := newTestGenerator(models, 3).Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if len(models.prompts) != 1 {
		t.Fatalf("expected single call, got %d", len(models.prompts))
	}
}

func TestGeneratorRejectsEmptyPromptAndResponse(t *testing.T) {
	models := &fakeModels{}
	g := newTestGenerator(models, 1)

	if _, err := g.Generate(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}

	models.enqueue(textResponse("   "), nil)
	if _, err := g.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorBatchKeepsOrder(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("first"), nil)
	models.enqueue(textResponse("second"), nil)

	out, err := newTestGenerator(models, 1).GenerateBatch(context.Background(), []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != "first" || out[1] != "second" {
		t.Fatalf("unexpected batch output: %+v", out)
	}
}

func newTestEmbedder(models *fakeModels) *Embedder {
	return &Embedder{
		resolve:    func(context.Context) (modelsAPI, error) { return models, nil },
		model:      "embed-test",
		maxRetries: 1,
		logger:     zap.NewNop(),
	}
}

func TestEmbedderBatch(t *testing.T) {
	models := &fakeModels{}
	e := newTestEmbedder(models)

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 || vectors[2][0] != 2 {
		t.Fatalf("unexpected vectors: %+v", vectors)
	}
	if models.embedConfig == nil || models.embedConfig.TaskType != similarityEmbeddingTask {
		t.Fatalf("expected similarity task type, got %+v", models.embedConfig)
	}

	empty, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || empty != nil {
		t.Fatalf("expected nil result for no texts, got %v / %v", empty, err)
	}
	if models.embedCalls != 1 {
		t.Fatalf("expected a single api call, got %d", models.embedCalls)
	}
}

func TestEmbedderSplitsLargeBatches(t *testing.T) {
	models := &fakeModels{}
	e := newTestEmbedder(models)

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = fmt.Sprintf("exemplar %d", i)
	}

	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{maxEmbedBatch, 50}, models.embedSizes); diff != "" {
		t.Fatalf("request sizes mismatch (-want +got):\n%s", diff)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Fatalf("vector %d out of order: %v", i, v)
		}
	}
}

func TestEmbedderBatchFailureStopsEarly(t *testing.T) {
	models := &fakeModels{embedErr: genai.APIError{Code: http.StatusBadRequest, Message: "too many"}}
	e := newTestEmbedder(models)

	if _, err := e.EmbedBatch(context.Background(), make([]string, 250)); err == nil {
		t.Fatal("expected error")
	}
	if models.embedCalls != 1 {
		t.Fatalf("expected to stop after the first failed request, got %d calls", models.embedCalls)
	}
}

func TestClientRetriesCreationAfterFailure(t *testing.T) {
	models := &fakeModels{}
	attempts := 0
	original := newModels
	newModels = func(context.Context, string) (modelsAPI, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("dial failed")
		}
		return models, nil
	}
	t.Cleanup(func() { newModels = original })

	client, err := NewClient(Config{APIKey: "key"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.resolve(context.Background()); err == nil {
		t.Fatal("expected first creation to fail")
	}
	for range 2 {
		got, err := client.resolve(context.Background())
		if err != nil {
			t.Fatalf("expected creation to be retried, got %v", err)
		}
		if got != modelsAPI(models) {
			t.Fatal("expected the created models to be returned")
		}
	}
	if attempts != 2 {
		t.Fatalf("expected 2 creation attempts, got %d", attempts)
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "  "}, nil); err == nil {
		t.Fatal("expected error for missing api key")
	}

	c, err := NewClient(Config{APIKey: "key"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Generator().Model() != defaultModel {
		t.Fatalf("expected default model, got %q", c.Generator().Model())
	}
	if c.Embedder().model != defaultEmbeddingModel {
		t.Fatalf("expected default embedding model, got %q", c.Embedder().model)
	}
}
