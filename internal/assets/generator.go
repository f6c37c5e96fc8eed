// Package assets builds the exemplar corpus of a rubric: one packet per
// qualitative criterion plus verbatim example sentences extracted from
// labeled worked answers.
package assets

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/rubric-evaluator/internal/ai"
	"github.com/spigell/rubric-evaluator/internal/logger"
	"github.com/spigell/rubric-evaluator/internal/rubric"
	"go.uber.org/zap"
)

//go:embed extraction_prompt.md
var extractionTemplate string

const (
	DefaultBatchSize    = 8
	defaultMaxLogLength = 200
	defaultCompanyName  = "the company"
	defaultJobTitle     = "new hire"
)

// CriterionStats counts extraction outcomes of one criterion.
type CriterionStats struct {
	Success int `json:"success"`
	Fail    int `json:"fail"`
}

// Stats is keyed by criterion packet id.
type Stats map[string]*CriterionStats

// Totals sums outcomes over all criteria.
func (s Stats) Totals() (success, fail int) {
	for _, c := range s {
		success += c.Success
		fail += c.Fail
	}
	return success, fail
}

type task struct {
	criterion CriterionPacket
	example   Example
	label     string
}

// Generator produces the exemplar corpus of a rubric.
type Generator struct {
	llm       ai.BatchGenerator
	batchSize int
	maxLogLen int
	logger    *zap.Logger
}

// NewGenerator creates a generator. Batches are sent to llm one at a time.
func NewGenerator(llm ai.BatchGenerator, batchSize, maxLogLength int, log *zap.Logger) *Generator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Generator{
		llm:       llm,
		batchSize: batchSize,
		maxLogLen: maxLogLength,
		logger:    logger.WithFields(log),
	}
}

// Generate builds the corpus of cfg from the worked examples. A failing
// generation call aborts the build; an extraction that cannot be matched to
// the source text only counts as a failure.
func (g *Generator) Generate(ctx context.Context, cfg *rubric.Config, examples []ExampleSet) (*Corpus, Stats, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("rubric config is required")
	}

	corpus := NewCorpus(cfg.RubricID)
	stats := make(Stats)

	for _, q := range cfg.CoverLetterQuestions {
		for _, c := range q.Criteria {
			corpus.Criteria = append(corpus.Criteria, CriterionPacket{
				PacketID:   criterionPacketID(q.ID, c.Name),
				QuestionID: q.ID,
				Criterion:  c,
			})
		}
	}

	tasks := enumerateTasks(corpus.Criteria, examples)

	g.logger.Info("generating exemplar corpus",
		zap.Int("criteria", len(corpus.Criteria)),
		zap.Int("tasks", len(tasks)),
		zap.Int("batch_size", g.batchSize),
	)

	for start := 0; start < len(tasks); start += g.batchSize {
		batch := tasks[start:min(start+g.batchSize, len(tasks))]

		prompts := make([]string, len(batch))
		for i, t := range batch {
			prompts[i] = buildExtractionPrompt(cfg, t.criterion.Criterion, t.example.Content)
		}

		raw, err := g.llm.GenerateBatch(ctx, prompts)
		if err != nil {
			return nil, nil, fmt.Errorf("generate batch starting at task %d: %w", start, err)
		}
		if len(raw) != len(batch) {
			return nil, nil, fmt.Errorf("generation returned %d outputs for %d prompts", len(raw), len(batch))
		}

		for i, t := range batch {
			sentence := Refine(raw[i], t.example.Content)

			st := stats[t.criterion.PacketID]
			if st == nil {
				st = &CriterionStats{}
				stats[t.criterion.PacketID] = st
			}

			g.logger.Debug("extracted exemplar",
				zap.String("criterion", t.criterion.Criterion.Name),
				zap.String("example_id", t.example.ID),
				zap.Int("response_length", utf8.RuneCountInString(raw[i])),
				zap.String("sentence_preview", logger.TruncateForLog(sentence, g.maxLogLen)),
			)

			if sentence == "" || isSentinel(sentence) {
				st.Fail++
				continue
			}

			st.Success++
			corpus.Examples = append(corpus.Examples, ExamplePacket{
				PacketID:          examplePacketID(t.example.ID, t.criterion.Criterion.Name),
				QuestionID:        t.criterion.QuestionID,
				Label:             t.label,
				LinkedCriterion:   t.criterion.Criterion.Name,
				ExtractedSentence: sentence,
			})
		}
	}

	for id, st := range stats {
		g.logger.Info("criterion extraction stats",
			zap.String("criterion", id),
			zap.Int("success", st.Success),
			zap.Int("fail", st.Fail),
		)
	}

	return corpus, stats, nil
}

func enumerateTasks(criteria []CriterionPacket, examples []ExampleSet) []task {
	var tasks []task
	for _, c := range criteria {
		for _, set := range examples {
			if set.QuestionID != c.QuestionID {
				continue
			}
			for _, ex := range set.GoodExamples {
				tasks = append(tasks, task{criterion: c, example: ex, label: LabelGood})
			}
			for _, ex := range set.BadExamples {
				tasks = append(tasks, task{criterion: c, example: ex, label: LabelBad})
			}
		}
	}
	return tasks
}

func buildExtractionPrompt(cfg *rubric.Config, criterion rubric.CoverCriterion, content string) string {
	company := strings.TrimSpace(cfg.CompanyName)
	if company == "" {
		company = defaultCompanyName
	}
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = defaultJobTitle
	}

	template := extractionTemplate
	if strings.TrimSpace(template) == "" {
		template = "Criterion: {{CRITERION_NAME}}\nSource:\n{{EXAMPLE_CONTENT}}\nAnswer with one verbatim sentence or {{SENTINEL}}."
	}

	return strings.NewReplacer(
		"{{CRITERION_NAME}}", criterion.Name,
		"{{COMPANY_NAME}}", company,
		"{{JOB_TITLE}}", title,
		"{{EXCELLENT_DESCRIPTION}}", criterion.DetailFor(rubric.GradeExcellent, ""),
		"{{POOR_DESCRIPTION}}", criterion.DetailFor(rubric.GradePoor, ""),
		"{{SENTINEL}}", Sentinel,
		"{{EXAMPLE_CONTENT}}", content,
	).Replace(template)
}
