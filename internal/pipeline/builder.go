package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/artifacts"
	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/docstore"
	"github.com/spigell/rubric-evaluator/internal/logger"
	"github.com/spigell/rubric-evaluator/internal/rubric"
)

// AssetGenerator produces the exemplar corpus of a compiled rubric.
type AssetGenerator interface {
	Generate(ctx context.Context, cfg *rubric.Config, examples []assets.ExampleSet) (*assets.Corpus, assets.Stats, error)
}

// CorpusIndex replaces the indexed documents of a collection.
type CorpusIndex interface {
	UpsertCorpus(ctx context.Context, collection string, docs []docstore.Document) error
}

// Builder runs the build stage.
type Builder struct {
	store     *artifacts.Store
	generator AssetGenerator
	index     CorpusIndex
	logger    *zap.Logger
}

func NewBuilder(store *artifacts.Store, generator AssetGenerator, index CorpusIndex, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{store: store, generator: generator, index: index, logger: log}
}

// WithLogger returns a copy of the builder logging to log.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	c := *b
	if log != nil {
		c.logger = log
	}
	return &c
}

// BuildResult is what a build run produced.
type BuildResult struct {
	Config *rubric.Config
	Corpus *assets.Corpus
	Stats  assets.Stats
}

// Run compiles def and persists the result, then generates and persists the
// exemplar corpus and replaces the rubric's document collection with its
// examples. Artifacts written before a failing step stay on disk.
func (b *Builder) Run(ctx context.Context, def *rubric.Definition, examples []assets.ExampleSet) (*BuildResult, error) {
	jobRole := ""
	if def != nil {
		jobRole = def.JobRole
	}
	cfg, err := rubric.Compile(def, jobRole)
	if err != nil {
		return nil, fmt.Errorf("compile rubric: %w", err)
	}

	result := &BuildResult{Config: cfg}
	log := logger.WithFields(b.logger, logger.RubricFields(cfg.RubricID)...)
	log.Info("rubric compiled",
		zap.Int("resume_items", len(cfg.ResumeItems)),
		zap.Int("cover_letter_questions", len(cfg.CoverLetterQuestions)),
	)

	steps := []step{
		{name: "save rubric", run: func(context.Context) error {
			return b.store.SaveRubric(cfg)
		}},
		{name: "generate assets", run: func(ctx context.Context) error {
			corpus, stats, err := b.generator.Generate(ctx, cfg, examples)
			if err != nil {
				return err
			}
			result.Corpus, result.Stats = corpus, stats
			return nil
		}},
		{name: "save corpus", run: func(context.Context) error {
			return b.store.SaveCorpus(result.Corpus)
		}},
		{name: "index examples", run: func(ctx context.Context) error {
			return b.index.UpsertCorpus(ctx, rubric.CollectionID(cfg.RubricID), ExampleDocuments(result.Corpus))
		}},
	}

	if err := runSteps(ctx, log, steps); err != nil {
		return result, err
	}

	success, fail := result.Stats.Totals()
	log.Info("build run finished",
		zap.Int("criteria", len(result.Corpus.Criteria)),
		zap.Int("examples", len(result.Corpus.Examples)),
		zap.Int("extraction_success", success),
		zap.Int("extraction_fail", fail),
	)
	return result, nil
}

// ExampleDocuments turns corpus examples into store documents keyed by packet id.
func ExampleDocuments(corpus *assets.Corpus) []docstore.Document {
	if corpus == nil {
		return nil
	}
	docs := make([]docstore.Document, 0, len(corpus.Examples))
	for _, ex := range corpus.Examples {
		docs = append(docs, docstore.Document{
			ID:   ex.PacketID,
			Text: ex.ExtractedSentence,
			Metadata: map[string]string{
				docstore.MetaQuestionID:      strconv.Itoa(ex.QuestionID),
				docstore.MetaLabel:           ex.Label,
				docstore.MetaLinkedCriterion: ex.LinkedCriterion,
			},
		})
	}
	return docs
}
