package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spigell/rubric-evaluator/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	Provider                = "gemini"
	defaultModel            = "gemini-2.5-flash"
	defaultEmbeddingModel   = "gemini-embedding-001"
	defaultMaxLogLength     = 200
	similarityEmbeddingTask = "SEMANTIC_SIMILARITY"
)

// modelsAPI is the part of genai.Models the capabilities use.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type modelsResolver func(ctx context.Context) (modelsAPI, error)

// Config configures the Gemini capabilities.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	MaxLogLength   int
}

// Client owns one genai client for the whole process. The underlying client
// is created on first use and then shared by every capability handed out.
type Client struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	models modelsAPI
}

// newModels is replaced in tests.
var newModels = func(ctx context.Context, apiKey string) (modelsAPI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// NewClient validates cfg without contacting the API.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.EmbeddingModel = strings.TrimSpace(cfg.EmbeddingModel); cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbeddingModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &Client{cfg: cfg, logger: logger.WithFields(log)}, nil
}

// resolve creates the genai client on first success. A failed attempt is not
// remembered, so a later call tries again.
func (c *Client) resolve(ctx context.Context) (modelsAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.models != nil {
		return c.models, nil
	}

	models, err := newModels(ctx, c.cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.models = models
	c.logger.Debug("genai client created")
	return c.models, nil
}

// Generator returns the text-generation capability backed by this client.
func (c *Client) Generator() *Generator {
	return &Generator{
		resolve:    c.resolve,
		model:      c.cfg.Model,
		maxRetries: c.cfg.MaxRetries,
		maxLogLen:  c.cfg.MaxLogLength,
		logger:     logger.WithCommonFields(c.logger, Provider, c.cfg.Model),
	}
}

// Embedder returns the embedding capability backed by this client.
func (c *Client) Embedder() *Embedder {
	return &Embedder{
		resolve:    c.resolve,
		model:      c.cfg.EmbeddingModel,
		maxRetries: c.cfg.MaxRetries,
		logger:     logger.WithCommonFields(c.logger, Provider, c.cfg.EmbeddingModel),
	}
}

// Generator sends prompts to a Gemini model.
type Generator struct {
	resolve    modelsResolver
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

// Generate sends the prompt and returns the concatenated text of the response.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.resolve == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	api, err := g.resolve(ctx)
	if err != nil {
		return "", err
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, g.maxLogLen)),
	)

	var output string
	err = withRetries(ctx, g.logger, g.maxRetries, func() error {
		resp, err := api.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		output, err = responseText(resp)
		return err
	})
	if err != nil {
		return "", err
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", logger.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

// GenerateBatch answers prompts one after another, preserving order.
func (g *Generator) GenerateBatch(ctx context.Context, prompts []string) ([]string, error) {
	out := make([]string, len(prompts))
	for i, prompt := range prompts {
		text, err := g.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("batch prompt %d of %d: %w", i+1, len(prompts), err)
		}
		out[i] = text
	}
	return out, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}
