// Package qualitative grades free-text cover-letter answers against the
// rubric's criteria, using retrieved exemplar sentences as reference, and
// produces the holistic analysis of an application.
package qualitative

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/ai"
	"github.com/spigell/rubric-evaluator/internal/applicant"
	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/docstore"
	"github.com/spigell/rubric-evaluator/internal/logger"
	"github.com/spigell/rubric-evaluator/internal/rubric"
	"github.com/spigell/rubric-evaluator/internal/scoring"
)

var (
	//go:embed evaluation_prompt.md
	evaluationTemplate string
	//go:embed summary_prompt.md
	summaryTemplate string
	//go:embed analysis_prompt.md
	analysisTemplate string
)

const (
	DefaultTopK         = 3
	defaultMaxLogLength = 200
	defaultJobTitle     = "new hire"

	noExamples        = "none"
	noBestDescription = "N/A"

	SummaryFailed        = "summary generation failed"
	AnalysisFailed       = "analysis failed"
	RecommendationUnsure = "indeterminate"
)

// Retriever finds exemplar documents similar to an answer.
type Retriever interface {
	QueryNearest(ctx context.Context, collection, query string, k int, filter docstore.Filter) ([]docstore.Document, error)
}

// Evaluator runs the qualitative part of an evaluation.
type Evaluator struct {
	llm       ai.Generator
	retriever Retriever
	topK      int
	maxLogLen int
	logger    *zap.Logger
}

// NewEvaluator wires the generation and retrieval capabilities. Non-positive
// topK and maxLogLength select the defaults.
func NewEvaluator(llm ai.Generator, retriever Retriever, topK, maxLogLength int, log *zap.Logger) *Evaluator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		llm:       llm,
		retriever: retriever,
		topK:      topK,
		maxLogLen: maxLogLength,
		logger:    log,
	}
}

type summary struct {
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
}

// Evaluate grades every answer and then analyses the whole application.
// Unparseable model output never fails the call: a criterion grade is dropped,
// a summary or analysis falls back to a fixed default. Capability errors are
// returned as is.
func (e *Evaluator) Evaluate(ctx context.Context, cfg *rubric.Config, corpus *assets.Corpus, answers []applicant.CoverLetterAnswer, quant scoring.Result) ([]applicant.QuestionEvaluation, applicant.OverallAnalysis, error) {
	collection := rubric.CollectionID(rubricID(cfg, corpus))
	title := jobTitle(cfg)

	evaluations := make([]applicant.QuestionEvaluation, 0, len(answers))
	for _, answer := range answers {
		eval, err := e.evaluateAnswer(ctx, cfg, corpus, collection, title, answer)
		if err != nil {
			return nil, applicant.OverallAnalysis{}, err
		}
		evaluations = append(evaluations, eval)
	}

	overall, err := e.analyse(ctx, quant, evaluations)
	if err != nil {
		return nil, applicant.OverallAnalysis{}, err
	}

	return evaluations, overall, nil
}

func (e *Evaluator) evaluateAnswer(ctx context.Context, cfg *rubric.Config, corpus *assets.Corpus, collection, title string, answer applicant.CoverLetterAnswer) (applicant.QuestionEvaluation, error) {
	questionID := answer.CoverLetterQuestionID
	log := e.logger.With(zap.Int("question_id", questionID))

	examples, err := e.retriever.QueryNearest(ctx, collection, answer.AnswerContent, e.topK,
		docstore.Filter{docstore.MetaQuestionID: strconv.Itoa(questionID)})
	if err != nil {
		return applicant.QuestionEvaluation{}, fmt.Errorf("retrieving examples for question %d: %w", questionID, err)
	}
	examplesText := formatExamples(examples)

	criteria := criteriaFor(cfg, corpus, questionID)
	evaluations := make([]applicant.CriterionEvaluation, 0, len(criteria))
	for _, criterion := range criteria {
		prompt := buildEvaluationPrompt(title, criterion, answer.AnswerContent, examplesText)
		raw, err := e.generate(ctx, log, "criterion evaluation", prompt)
		if err != nil {
			return applicant.QuestionEvaluation{}, fmt.Errorf("evaluating question %d criterion %q: %w", questionID, criterion.Name, err)
		}

		var eval applicant.CriterionEvaluation
		if !ai.DecodeFirstObject(raw, &eval) {
			log.Warn("dropping unparseable criterion evaluation",
				zap.String("criterion", criterion.Name),
				zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
			)
			continue
		}
		eval.EvaluationCriteriaName = criterion.Name
		evaluations = append(evaluations, eval)
	}

	raw, err := e.generate(ctx, log, "answer summary", buildSummaryPrompt(answer.AnswerContent))
	if err != nil {
		return applicant.QuestionEvaluation{}, fmt.Errorf("summarizing question %d: %w", questionID, err)
	}
	var s summary
	if !ai.DecodeFirstObject(raw, &s) {
		log.Warn("summary response unparseable, using fallback",
			zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
		)
		s = summary{Summary: SummaryFailed}
	}
	if s.Keywords == nil {
		s.Keywords = []string{}
	}

	log.Info("cover letter answer evaluated",
		zap.Int("criteria", len(criteria)),
		zap.Int("graded", len(evaluations)),
		zap.Int("examples", len(examples)),
	)

	return applicant.QuestionEvaluation{
		CoverLetterQuestionID: questionID,
		Keywords:              s.Keywords,
		Summary:               s.Summary,
		AnswerEvaluations:     evaluations,
	}, nil
}

type quantitativeReport struct {
	ScoresByID scoring.Result `json:"scoresById"`
	Total      int            `json:"total"`
}

type applicationReport struct {
	Quantitative quantitativeReport             `json:"quantitative"`
	Qualitative  []applicant.QuestionEvaluation `json:"qualitative"`
}

func (e *Evaluator) analyse(ctx context.Context, quant scoring.Result, evaluations []applicant.QuestionEvaluation) (applicant.OverallAnalysis, error) {
	if quant == nil {
		quant = scoring.Result{}
	}
	report, err := json.MarshalIndent(applicationReport{
		Quantitative: quantitativeReport{ScoresByID: quant, Total: quant.Total()},
		Qualitative:  evaluations,
	}, "", "  ")
	if err != nil {
		return applicant.OverallAnalysis{}, fmt.Errorf("encoding application report: %w", err)
	}

	raw, err := e.generate(ctx, e.logger, "overall analysis", buildAnalysisPrompt(string(report)))
	if err != nil {
		return applicant.OverallAnalysis{}, fmt.Errorf("analysing application: %w", err)
	}

	var overall applicant.OverallAnalysis
	if !ai.DecodeFirstObject(raw, &overall) {
		e.logger.Warn("overall analysis unparseable, using fallback",
			zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
		)
		return FallbackAnalysis(), nil
	}
	if overall.Strengths == nil {
		overall.Strengths = []string{}
	}
	if overall.Improvements == nil {
		overall.Improvements = []string{}
	}
	return overall, nil
}

// FallbackAnalysis is reported when the model's analysis cannot be parsed.
func FallbackAnalysis() applicant.OverallAnalysis {
	return applicant.OverallAnalysis{
		OverallEvaluation: AnalysisFailed,
		Strengths:         []string{},
		Improvements:      []string{},
		AIRecommendation:  RecommendationUnsure,
		AIReliability:     0,
	}
}

func (e *Evaluator) generate(ctx context.Context, log *zap.Logger, purpose, prompt string) (string, error) {
	log.Debug("sending prompt",
		zap.String("purpose", purpose),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	log.Debug("received response",
		zap.String("purpose", purpose),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)
	return raw, nil
}

// criteriaFor prefers the corpus's criterion packets and falls back to the
// rubric when the corpus has none for the question.
func criteriaFor(cfg *rubric.Config, corpus *assets.Corpus, questionID int) []rubric.CoverCriterion {
	if packets := corpus.CriteriaFor(questionID); len(packets) > 0 {
		out := make([]rubric.CoverCriterion, len(packets))
		for i, p := range packets {
			out[i] = p.Criterion
		}
		return out
	}
	if q, ok := cfg.Question(questionID); ok {
		return q.Criteria
	}
	return nil
}

func rubricID(cfg *rubric.Config, corpus *assets.Corpus) string {
	if cfg != nil && cfg.RubricID != "" {
		return cfg.RubricID
	}
	if corpus != nil {
		return corpus.RubricID
	}
	return ""
}

func jobTitle(cfg *rubric.Config) string {
	if cfg == nil {
		return defaultJobTitle
	}
	for _, v := range []string{cfg.Title, cfg.JobRole} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return defaultJobTitle
}

func formatExamples(docs []docstore.Document) string {
	if len(docs) == 0 {
		return noExamples
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = "- " + d.Text
	}
	return strings.Join(lines, "\n")
}

func buildEvaluationPrompt(title string, criterion rubric.CoverCriterion, answer, examples string) string {
	return strings.NewReplacer(
		"{{JOB_TITLE}}", title,
		"{{ANSWER}}", answer,
		"{{CRITERION_NAME}}", criterion.Name,
		"{{EXCELLENT_DESCRIPTION}}", criterion.DetailFor(rubric.GradeExcellent, noBestDescription),
		"{{EXAMPLES}}", examples,
	).Replace(evaluationTemplate)
}

func buildSummaryPrompt(answer string) string {
	return strings.ReplaceAll(summaryTemplate, "{{ANSWER}}", answer)
}

func buildAnalysisPrompt(report string) string {
	return strings.ReplaceAll(analysisTemplate, "{{REPORT}}", report)
}
