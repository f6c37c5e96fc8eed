package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/ai"
	"github.com/spigell/rubric-evaluator/internal/ai/gemini"
	"github.com/spigell/rubric-evaluator/internal/artifacts"
	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/delivery"
	"github.com/spigell/rubric-evaluator/internal/docstore"
	"github.com/spigell/rubric-evaluator/internal/knowledge"
	"github.com/spigell/rubric-evaluator/internal/logger"
	"github.com/spigell/rubric-evaluator/internal/pipeline"
	"github.com/spigell/rubric-evaluator/internal/qualitative"
	"github.com/spigell/rubric-evaluator/internal/secrets"
)

const (
	storeDriverSQLite = "sqlite"
	storeDriverMemory = "memory"
)

// runtime holds everything a command needs. Capabilities are shared by the
// build and evaluate pipelines.
type runtime struct {
	config    *Config
	logger    *zap.Logger
	docs      docstore.Store
	store     *artifacts.Store
	builder   *pipeline.Builder
	evaluator *pipeline.Evaluator
}

// setup builds the runtime or exits the process, as every command needs it.
func setup() *runtime {
	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		zl.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	zl.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	rt, err := newRuntime(config, zl)
	if err != nil {
		zl.Fatal("initializing", zap.Error(err))
	}
	return rt
}

func newRuntime(config *Config, zl *zap.Logger) (*runtime, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  config.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: config.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY or gemini.api-key-file)", err)
	}

	client, err := gemini.NewClient(gemini.Config{
		APIKey:         apiKey,
		Model:          config.Gemini.Model,
		EmbeddingModel: config.Gemini.EmbeddingModel,
		MaxRetries:     config.Gemini.MaxRetries,
		MaxLogLength:   config.Gemini.MaxLogLength,
	}, zl)
	if err != nil {
		return nil, err
	}

	embedder := client.Embedder()
	docs, err := openDocstore(config.Store, embedder)
	if err != nil {
		return nil, err
	}

	deliverer, err := newDeliverer(config.Delivery, zl)
	if err != nil {
		docs.Close()
		return nil, err
	}

	generator := client.Generator()
	store := artifacts.NewStore(config.DataDir)

	return &runtime{
		config: config,
		logger: zl,
		docs:   docs,
		store:  store,
		builder: pipeline.NewBuilder(store,
			assets.NewGenerator(generator, config.Assets.BatchSize, config.Gemini.MaxLogLength, zl),
			docs, zl),
		evaluator: pipeline.NewEvaluator(pipeline.EvaluatorConfig{
			Store: store,
			Knowledge: knowledge.Files{
				Institutions:   config.Knowledge.InstitutionsFile,
				Certifications: config.Knowledge.CertificationsFile,
			},
			Similarity:          ai.NewEmbeddingSimilarity(embedder),
			SimilarityThreshold: config.Scoring.SimilarityThreshold,
			Qualitative:         qualitative.NewEvaluator(generator, docs, config.Qualitative.TopK, config.Gemini.MaxLogLength, zl),
			Deliverer:           deliverer,
		}, zl),
	}, nil
}

func (rt *runtime) close() {
	if err := rt.docs.Close(); err != nil {
		rt.logger.Warn("closing document store", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

func openDocstore(cfg StoreConfig, embedder ai.Embedder) (docstore.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", storeDriverSQLite:
		return docstore.NewSQLiteStore(cfg.Path, embedder)
	case storeDriverMemory:
		return docstore.NewMemoryStore(embedder), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (use %s or %s)", cfg.Driver, storeDriverSQLite, storeDriverMemory)
	}
}

func newDeliverer(cfg DeliveryConfig, zl *zap.Logger) (delivery.Deliverer, error) {
	var targets delivery.Multi
	if dir := strings.TrimSpace(cfg.OutboxDir); dir != "" {
		targets = append(targets, delivery.NewOutbox(dir, zl))
	}

	if url := strings.TrimSpace(cfg.WebhookURL); url != "" {
		token := ""
		if strings.TrimSpace(cfg.TokenFile) != "" {
			var err error
			token, err = secrets.Load(secrets.Source{Name: "delivery token", File: cfg.TokenFile})
			if err != nil {
				return nil, err
			}
		}
		hook := delivery.NewWebhook(url, token, zl)
		if cfg.UserAgent != "" {
			hook.UserAgent = cfg.UserAgent
		}
		targets = append(targets, hook)
	}

	if len(targets) == 0 {
		return nil, nil
	}
	return targets, nil
}

func redacted(config *Config) Config {
	c := *config
	if c.Gemini.APIKey != "" {
		c.Gemini.APIKey = "***"
	}
	return c
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
